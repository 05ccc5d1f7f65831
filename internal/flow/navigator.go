package flow

import (
	"errors"
	"fmt"
	"strings"

	"survey-bot-backend/internal/answers"
)

var (
	ErrQuestionNotFound   = errors.New("question not found")
	ErrRevisit            = errors.New("flow returns to an already visited question")
	ErrAlreadyAnswered    = errors.New("question already answered")
	ErrAnswerKindMismatch = errors.New("answer kind does not match question kind")
	ErrOptionNotFound     = errors.New("selected option is not configured on the question")
)

// Progress is one respondent's position in a survey. Visited only grows.
type Progress struct {
	Visited      []uint
	LastAnswered *uint
}

func (p *Progress) HasVisited(id uint) bool {
	for _, v := range p.Visited {
		if v == id {
			return true
		}
	}
	return false
}

type Resolution struct {
	Step       Step
	Next       *Node
	IsComplete bool
}

// Navigator answers "where next" for one survey graph. It holds no state
// of its own and is safe to share.
type Navigator struct {
	graph *Graph
}

func NewNavigator(g *Graph) *Navigator {
	return &Navigator{graph: g}
}

func (nav *Navigator) Graph() *Graph { return nav.graph }

// DetermineNextStep picks the step for answer on question questionID.
// Branching questions follow the selected option; everything else uses the
// default next step, where EndSurvey wins over ordinal order.
func (nav *Navigator) DetermineNextStep(questionID uint, answer answers.Value) (Step, error) {
	n, ok := nav.graph.Node(questionID)
	if !ok {
		return Step{}, fmt.Errorf("question %d: %w", questionID, ErrQuestionNotFound)
	}
	if answer == nil || answer.Kind() != n.Kind {
		return Step{}, fmt.Errorf("question %d expects %s: %w", questionID, n.Kind, ErrAnswerKindMismatch)
	}

	if !n.Branching() || len(n.Options) == 0 {
		return nav.graph.nonBranchingStep(n), nil
	}

	opt, err := selectedOption(n, answer)
	if err != nil {
		return Step{}, fmt.Errorf("question %d: %w", questionID, err)
	}
	if opt.Next.Present() {
		return *opt.Next, nil
	}
	return nav.graph.Sequential(questionID), nil
}

func selectedOption(n *Node, answer answers.Value) (*Option, error) {
	switch v := answer.(type) {
	case answers.SingleChoice:
		if i := v.SelectedIndex(); i < len(n.Options) && sameText(n.Options[i].Text, v.SelectedOption()) {
			return &n.Options[i], nil
		}
		if opt := optionByText(n, v.SelectedOption()); opt != nil {
			return opt, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrOptionNotFound, v.SelectedOption())
	case answers.Rating:
		// options are the scale's labels in order
		if i := v.Value() - v.Scale().Min; i >= 0 && i < len(n.Options) {
			return &n.Options[i], nil
		}
		return nil, fmt.Errorf("%w: rating %d", ErrOptionNotFound, v.Value())
	}
	return nil, ErrAnswerKindMismatch
}

func optionByText(n *Node, text string) *Option {
	for i := range n.Options {
		if sameText(n.Options[i].Text, text) {
			return &n.Options[i]
		}
	}
	return nil
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ResolveNextQuestion determines the next step and, on success, records
// questionID as visited. Returning to a visited question is an error.
func (nav *Navigator) ResolveNextQuestion(progress *Progress, questionID uint, answer answers.Value) (Resolution, error) {
	if progress == nil {
		progress = &Progress{}
	}
	if !nav.graph.Has(questionID) {
		return Resolution{}, fmt.Errorf("question %d: %w", questionID, ErrQuestionNotFound)
	}
	if progress.HasVisited(questionID) {
		return Resolution{}, fmt.Errorf("question %d: %w", questionID, ErrAlreadyAnswered)
	}

	step, err := nav.DetermineNextStep(questionID, answer)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{Step: step}
	if step.IsEnd() {
		res.IsComplete = true
	} else {
		target, _ := step.Target()
		next, ok := nav.graph.Node(target)
		if !ok {
			return Resolution{}, fmt.Errorf("question %d points to question %d: %w", questionID, target, ErrQuestionNotFound)
		}
		if target == questionID || progress.HasVisited(target) {
			return Resolution{}, fmt.Errorf("question %d points to question %d: %w", questionID, target, ErrRevisit)
		}
		res.Next = next
	}

	progress.Visited = append(progress.Visited, questionID)
	last := questionID
	progress.LastAnswered = &last
	return res, nil
}
