package flow

import (
	"errors"
	"fmt"
	"sort"

	"survey-bot-backend/internal/answers"
)

var ErrInvalidNode = errors.New("invalid flow node")

type Option struct {
	ID       uint
	Text     string
	Position int
	Next     *Step
}

// Node is the flow-relevant view of one question.
type Node struct {
	ID          uint
	Position    int
	Kind        answers.Kind
	DefaultNext *Step
	Options     []Option
}

// Branching reports whether the node's next step depends on the selected option.
// Rating questions branch only when they carry options.
func (n *Node) Branching() bool {
	switch n.Kind {
	case answers.KindSingleChoice:
		return true
	case answers.KindRating:
		return len(n.Options) > 0
	}
	return false
}

// Graph is an arena of question nodes indexed by id. Edges are plain ids.
type Graph struct {
	nodes map[uint]*Node
	order []uint
	index map[uint]int
}

// NewGraph copies nodes into a graph ordered by position (ties by id).
func NewGraph(nodes []Node) (*Graph, error) {
	g := &Graph{
		nodes: make(map[uint]*Node, len(nodes)),
		index: make(map[uint]int, len(nodes)),
	}

	for i := range nodes {
		n := nodes[i]
		if n.ID == 0 {
			return nil, fmt.Errorf("%w: question id must be positive", ErrInvalidNode)
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %d", ErrInvalidNode, n.ID)
		}
		if !n.Kind.Valid() {
			return nil, fmt.Errorf("%w: question %d has unknown kind %q", ErrInvalidNode, n.ID, n.Kind)
		}
		if len(n.Options) > 0 && !n.Kind.HasOptions() {
			return nil, fmt.Errorf("%w: %s question %d cannot have options", ErrInvalidNode, n.Kind, n.ID)
		}

		n.Options = append([]Option(nil), n.Options...)
		sort.SliceStable(n.Options, func(a, b int) bool {
			return n.Options[a].Position < n.Options[b].Position
		})
		if !n.Branching() {
			for _, opt := range n.Options {
				if opt.Next.Present() {
					return nil, fmt.Errorf("%w: option %q of %s question %d cannot carry a next step", ErrInvalidNode, opt.Text, n.Kind, n.ID)
				}
			}
		}

		g.nodes[n.ID] = &n
		g.order = append(g.order, n.ID)
	}

	sort.SliceStable(g.order, func(a, b int) bool {
		na, nb := g.nodes[g.order[a]], g.nodes[g.order[b]]
		if na.Position != nb.Position {
			return na.Position < nb.Position
		}
		return na.ID < nb.ID
	})
	for i, id := range g.order {
		g.index[id] = i
	}
	return g, nil
}

func (g *Graph) Len() int { return len(g.order) }

// IDs returns question ids in ordinal order.
func (g *Graph) IDs() []uint {
	return append([]uint(nil), g.order...)
}

func (g *Graph) Node(id uint) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) Has(id uint) bool {
	_, ok := g.nodes[id]
	return ok
}

// First returns the question a new response starts at.
func (g *Graph) First() (uint, bool) {
	if len(g.order) == 0 {
		return 0, false
	}
	return g.order[0], true
}

// Sequential returns the step to the next question by ordinal position, or
// EndSurvey when id is the last one.
func (g *Graph) Sequential(id uint) Step {
	i, ok := g.index[id]
	if !ok || i+1 >= len(g.order) {
		return EndSurvey()
	}
	s, _ := GoToQuestion(g.order[i+1])
	return s
}

// Edges returns the distinct resolved steps leaving question id, with
// sequential fallback applied. Branching questions yield one edge per option.
func (g *Graph) Edges(id uint) []Step {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}

	var out []Step
	seen := make(map[Step]bool)
	add := func(s Step) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	if n.Branching() && len(n.Options) > 0 {
		for _, opt := range n.Options {
			if opt.Next.Present() {
				add(*opt.Next)
			} else {
				add(g.Sequential(id))
			}
		}
		return out
	}
	add(g.nonBranchingStep(n))
	return out
}

// nonBranchingStep applies the default-next precedence: EndSurvey first,
// then an explicit target, then ordinal order.
func (g *Graph) nonBranchingStep(n *Node) Step {
	if n.DefaultNext.Present() {
		if n.DefaultNext.IsEnd() {
			return EndSurvey()
		}
		return *n.DefaultNext
	}
	return g.Sequential(n.ID)
}
