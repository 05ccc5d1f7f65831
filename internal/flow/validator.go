package flow

import (
	"errors"
	"fmt"
	"strings"

	"survey-bot-backend/internal/answers"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrCycle         = errors.New("flow contains a cycle")
	ErrNoPathToEnd   = errors.New("question cannot reach the end of the survey")
	ErrMissingTarget = errors.New("flow step targets a missing question")
	ErrEmptySurvey   = errors.New("survey has no questions")
	ErrNoOptions     = errors.New("choice question has no options")
)

type CycleResult struct {
	HasCycle bool
	// Path lists the loop with its first id repeated at the end.
	Path []uint
}

// DetectCycle runs a depth-first search with color marking from every
// unvisited question. Steps to End or to missing questions are not followed.
func DetectCycle(g *Graph) CycleResult {
	const (
		white = 0 // not visited
		gray  = 1 // on the current path
		black = 2 // done
	)

	colors := make(map[uint]int, g.Len())
	var stack []uint
	var path []uint

	var dfs func(uint) bool
	dfs = func(id uint) bool {
		colors[id] = gray
		stack = append(stack, id)

		for _, edge := range g.Edges(id) {
			next, ok := edge.Target()
			if !ok || !g.Has(next) {
				continue
			}
			switch colors[next] {
			case gray:
				for i, v := range stack {
					if v == next {
						path = append(append(path, stack[i:]...), next)
						break
					}
				}
				return true
			case white:
				if dfs(next) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[id] = black
		return false
	}

	for _, id := range g.order {
		if colors[id] == white && dfs(id) {
			return CycleResult{HasCycle: true, Path: path}
		}
	}
	return CycleResult{}
}

// reachesEnd returns the set of questions with at least one path to End.
func reachesEnd(g *Graph) map[uint]bool {
	reverse := make(map[uint][]uint)
	ok := make(map[uint]bool)
	var queue []uint

	for _, id := range g.order {
		for _, edge := range g.Edges(id) {
			if edge.IsEnd() {
				if !ok[id] {
					ok[id] = true
					queue = append(queue, id)
				}
				continue
			}
			if to, _ := edge.Target(); g.Has(to) {
				reverse[to] = append(reverse[to], id)
			}
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, from := range reverse[id] {
			if !ok[from] {
				ok[from] = true
				queue = append(queue, from)
			}
		}
	}
	return ok
}

// Report is the structured outcome shown to survey authors.
type Report struct {
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors"`
	CyclePath []uint   `json:"cyclePath,omitempty"`

	err error
}

// Err returns the aggregated problems, or nil for a valid flow.
func (r Report) Err() error {
	return r.err
}

// Validate collects every structural problem in g. It never changes the graph.
func Validate(g *Graph) Report {
	var result *multierror.Error

	if g.Len() == 0 {
		result = multierror.Append(result, ErrEmptySurvey)
	}

	for _, id := range g.order {
		n := g.nodes[id]
		if needsOptions(n) && len(n.Options) == 0 {
			result = multierror.Append(result, fmt.Errorf("question %d: %w", id, ErrNoOptions))
		}
		for _, edge := range g.Edges(id) {
			if to, ok := edge.Target(); ok && !g.Has(to) {
				result = multierror.Append(result, fmt.Errorf("question %d: %w (question %d)", id, ErrMissingTarget, to))
			}
		}
	}

	cycle := DetectCycle(g)
	if cycle.HasCycle {
		result = multierror.Append(result, fmt.Errorf("%w: %s", ErrCycle, formatPath(cycle.Path)))
	}

	reach := reachesEnd(g)
	for _, id := range g.order {
		if !reach[id] {
			result = multierror.Append(result, fmt.Errorf("question %d: %w", id, ErrNoPathToEnd))
		}
	}

	report := Report{Valid: true, Errors: []string{}, CyclePath: cycle.Path}
	if err := result.ErrorOrNil(); err != nil {
		report.Valid = false
		report.err = err
		for _, e := range result.Errors {
			report.Errors = append(report.Errors, e.Error())
		}
	}
	return report
}

// ValidateStructure reports whether g is acyclic, every question reaches End,
// no step targets a missing question and there is at least one question.
func ValidateStructure(g *Graph) bool {
	return Validate(g).Valid
}

func needsOptions(n *Node) bool {
	return n.Kind == answers.KindSingleChoice || n.Kind == answers.KindMultipleChoice
}

func formatPath(path []uint) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = fmt.Sprintf("Q%d", id)
	}
	return strings.Join(parts, " -> ")
}
