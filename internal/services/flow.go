package services

import (
	"context"
	"errors"
	"log"

	"survey-bot-backend/internal/cache"
	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/models"

	"gorm.io/gorm"
)

// FlowService loads survey flow graphs and validates them.
type FlowService struct {
	db    *gorm.DB
	cache cache.GraphCache
}

func NewFlowService(db *gorm.DB, graphCache cache.GraphCache) *FlowService {
	if graphCache == nil {
		graphCache = cache.NewMemoryGraphCache()
	}
	return &FlowService{db: db, cache: graphCache}
}

// loadNodes reads every question of a survey, ordered by order_num, with options.
func loadNodes(db *gorm.DB, surveyID uint) ([]flow.Node, error) {
	var questions []models.Question
	err := db.Where("survey_id = ?", surveyID).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC, id ASC")
		}).
		Order("order_num ASC, id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}

	nodes := make([]flow.Node, 0, len(questions))
	for _, q := range questions {
		nodes = append(nodes, flowNode(q))
	}
	return nodes, nil
}

// flowVersion reads the survey's flow version. It must be read before the
// nodes: an edit committing in between then only makes the cached entry
// unreachable instead of stale.
func flowVersion(db *gorm.DB, surveyID uint) (uint64, error) {
	var survey models.Survey
	err := db.Select("id", "flow_version").First(&survey, surveyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrSurveyNotFound
	}
	if err != nil {
		return 0, err
	}
	return survey.FlowVersion, nil
}

// bumpFlowVersion is called inside every transaction that changes the flow.
func bumpFlowVersion(tx *gorm.DB, surveyID uint) error {
	return tx.Model(&models.Survey{}).Where("id = ?", surveyID).
		UpdateColumn("flow_version", gorm.Expr("flow_version + 1")).Error
}

// LoadGraph returns a freshly built graph for the survey. Nodes come from the
// cache when an entry for the current flow version is present.
func (s *FlowService) LoadGraph(ctx context.Context, surveyID uint) (*flow.Graph, error) {
	db := s.db.WithContext(ctx)
	version, err := flowVersion(db, surveyID)
	if err != nil {
		return nil, err
	}

	nodes, ok, err := s.cache.Get(ctx, surveyID, version)
	if err != nil {
		log.Printf("[FlowService] graph cache read for survey %d failed: %v", surveyID, err)
	}
	if !ok {
		nodes, err = loadNodes(db, surveyID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, surveyID, version, nodes); err != nil {
			log.Printf("[FlowService] graph cache write for survey %d failed: %v", surveyID, err)
		}
	}
	return flow.NewGraph(nodes)
}

// Invalidate drops the cached graph after an authoring write.
func (s *FlowService) Invalidate(ctx context.Context, surveyID uint) {
	if err := s.cache.Invalidate(ctx, surveyID); err != nil {
		log.Printf("[FlowService] graph cache invalidate for survey %d failed: %v", surveyID, err)
	}
}

// ValidateSurveyFlow builds the survey's graph and reports every structural problem.
func (s *FlowService) ValidateSurveyFlow(ctx context.Context, surveyID uint) (flow.Report, error) {
	g, err := s.LoadGraph(ctx, surveyID)
	if err != nil {
		return flow.Report{}, err
	}
	return flow.Validate(g), nil
}

// validateWithin validates the graph as seen by tx, before commit.
func validateWithin(tx *gorm.DB, surveyID uint) (flow.Report, error) {
	nodes, err := loadNodes(tx, surveyID)
	if err != nil {
		return flow.Report{}, err
	}
	g, err := flow.NewGraph(nodes)
	if err != nil {
		return flow.Report{}, err
	}
	return flow.Validate(g), nil
}
