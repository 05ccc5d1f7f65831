package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"survey-bot-backend/internal/flow"

	"github.com/redis/go-redis/v9"
)

// GraphCache keeps the flow nodes of a survey between requests. Callers build
// a fresh flow.Graph from the returned nodes on every call.
//
// Entries are stamped with the survey's flow version. Get reports a miss when
// the stored version differs from the one asked for, so nodes read before an
// edit can never be served after it.
type GraphCache interface {
	Get(ctx context.Context, surveyID uint, version uint64) ([]flow.Node, bool, error)
	Set(ctx context.Context, surveyID uint, version uint64, nodes []flow.Node) error
	Invalidate(ctx context.Context, surveyID uint) error
}

type graphEntry struct {
	Version uint64      `json:"version"`
	Nodes   []flow.Node `json:"nodes"`
}

func encodeEntry(version uint64, nodes []flow.Node) ([]byte, error) {
	return json.Marshal(graphEntry{Version: version, Nodes: nodes})
}

func decodeEntry(data []byte, version uint64) ([]flow.Node, bool, error) {
	var e graphEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false, err
	}
	if e.Version != version {
		return nil, false, nil
	}
	return e.Nodes, true, nil
}

func graphKey(surveyID uint) string {
	return fmt.Sprintf("survey:%d:graph", surveyID)
}

type redisGraphCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGraphCache(client *redis.Client, ttl time.Duration) GraphCache {
	return &redisGraphCache{client: client, ttl: ttl}
}

func (c *redisGraphCache) Get(ctx context.Context, surveyID uint, version uint64) ([]flow.Node, bool, error) {
	data, err := c.client.Get(ctx, graphKey(surveyID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return decodeEntry(data, version)
}

func (c *redisGraphCache) Set(ctx context.Context, surveyID uint, version uint64, nodes []flow.Node) error {
	data, err := encodeEntry(version, nodes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, graphKey(surveyID), data, c.ttl).Err()
}

func (c *redisGraphCache) Invalidate(ctx context.Context, surveyID uint) error {
	return c.client.Del(ctx, graphKey(surveyID)).Err()
}

type memoryGraphCache struct {
	mu    sync.RWMutex
	items map[uint][]byte
}

// NewMemoryGraphCache is the single-process fallback used without redis.
func NewMemoryGraphCache() GraphCache {
	return &memoryGraphCache{items: make(map[uint][]byte)}
}

func (c *memoryGraphCache) Get(_ context.Context, surveyID uint, version uint64) ([]flow.Node, bool, error) {
	c.mu.RLock()
	data, ok := c.items[surveyID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return decodeEntry(data, version)
}

func (c *memoryGraphCache) Set(_ context.Context, surveyID uint, version uint64, nodes []flow.Node) error {
	data, err := encodeEntry(version, nodes)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[surveyID] = data
	c.mu.Unlock()
	return nil
}

func (c *memoryGraphCache) Invalidate(_ context.Context, surveyID uint) error {
	c.mu.Lock()
	delete(c.items, surveyID)
	c.mu.Unlock()
	return nil
}
