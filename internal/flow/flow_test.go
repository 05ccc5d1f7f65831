package flow

import (
	"encoding/json"
	"testing"

	"survey-bot-backend/internal/answers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goTo(t *testing.T, id uint) *Step {
	t.Helper()
	s, err := GoToQuestion(id)
	require.NoError(t, err)
	return &s
}

func end() *Step { return Ptr(EndSurvey()) }

func textNode(id uint, pos int, next *Step) Node {
	return Node{ID: id, Position: pos, Kind: answers.KindText, DefaultNext: next}
}

func mustGraph(t *testing.T, nodes ...Node) *Graph {
	t.Helper()
	g, err := NewGraph(nodes)
	require.NoError(t, err)
	return g
}

func mustText(t *testing.T, s string) answers.Value {
	t.Helper()
	v, err := answers.NewText(s)
	require.NoError(t, err)
	return v
}

func TestStep_Constructors(t *testing.T) {
	_, err := GoToQuestion(0)
	assert.ErrorIs(t, err, ErrInvalidStep)

	s, err := GoToQuestion(5)
	require.NoError(t, err)
	id, ok := s.Target()
	assert.True(t, ok)
	assert.Equal(t, uint(5), id)
	assert.False(t, s.IsEnd())

	e := EndSurvey()
	_, ok = e.Target()
	assert.False(t, ok)
	assert.True(t, e.IsEnd())

	var unset *Step
	assert.False(t, unset.Present())
	assert.False(t, (&Step{}).Present())
	assert.True(t, Ptr(e).Present())
}

func TestStep_JSON(t *testing.T) {
	data, err := json.Marshal(*goTo(t, 5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"GoToQuestion","questionId":5}`, string(data))

	data, err = json.Marshal(EndSurvey())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"EndSurvey"}`, string(data))

	var holder struct {
		Next *Step `json:"next"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"next":null}`), &holder))
	assert.Nil(t, holder.Next)

	require.NoError(t, json.Unmarshal([]byte(`{"next":{"type":"GoToQuestion","questionId":7}}`), &holder))
	assert.Equal(t, goTo(t, 7), holder.Next)

	rejects := []string{
		`{"type":"GoToQuestion","questionId":0}`,
		`{"type":"GoToQuestion","questionId":-3}`,
		`{"type":"GoToQuestion"}`,
		`{"type":"EndSurvey","questionId":3}`,
		`{"type":"Jump","questionId":3}`,
		`{}`,
	}
	for _, raw := range rejects {
		t.Run(raw, func(t *testing.T) {
			var s Step
			assert.ErrorIs(t, json.Unmarshal([]byte(raw), &s), ErrInvalidStep)
		})
	}
}

func TestStep_ScanValue(t *testing.T) {
	v, err := goTo(t, 3).Value()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"GoToQuestion","questionId":3}`, v)

	var s Step
	require.NoError(t, s.Scan([]byte(`{"type":"EndSurvey"}`)))
	assert.Equal(t, EndSurvey(), s)

	require.NoError(t, s.Scan(v))
	assert.Equal(t, *goTo(t, 3), s)

	require.NoError(t, s.Scan(nil))
	assert.False(t, s.Present())

	assert.Error(t, s.Scan(42))
}

func TestNewGraph_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
	}{
		{"zero id", []Node{textNode(0, 1, nil)}},
		{"duplicate id", []Node{textNode(1, 1, nil), textNode(1, 2, nil)}},
		{"unknown kind", []Node{{ID: 1, Kind: "Slider"}}},
		{"options on text", []Node{{ID: 1, Kind: answers.KindText, Options: []Option{{ID: 1, Text: "a"}}}}},
		{"next on multiple choice option", []Node{{
			ID:      1,
			Kind:    answers.KindMultipleChoice,
			Options: []Option{{ID: 1, Text: "a", Next: end()}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.nodes)
			assert.ErrorIs(t, err, ErrInvalidNode)
		})
	}
}

func TestGraph_OrderAndEdges(t *testing.T) {
	g := mustGraph(t,
		textNode(30, 3, nil),
		Node{ID: 10, Position: 1, Kind: answers.KindSingleChoice, Options: []Option{
			{ID: 2, Text: "B", Position: 2, Next: end()},
			{ID: 1, Text: "A", Position: 1},
			{ID: 3, Text: "C", Position: 3},
		}},
		textNode(20, 2, nil),
	)

	assert.Equal(t, []uint{10, 20, 30}, g.IDs())
	first, ok := g.First()
	require.True(t, ok)
	assert.Equal(t, uint(10), first)

	// A and C fall back to ordinal order and collapse into one edge.
	assert.Equal(t, []Step{*goTo(t, 20), EndSurvey()}, g.Edges(10))
	assert.Equal(t, []Step{*goTo(t, 30)}, g.Edges(20))
	assert.Equal(t, []Step{EndSurvey()}, g.Edges(30))
	assert.Nil(t, g.Edges(99))
}

func TestDetectCycle(t *testing.T) {
	t.Run("three question loop", func(t *testing.T) {
		g := mustGraph(t,
			textNode(1, 1, goTo(t, 2)),
			textNode(2, 2, goTo(t, 3)),
			textNode(3, 3, goTo(t, 1)),
		)
		res := DetectCycle(g)
		assert.True(t, res.HasCycle)
		assert.Equal(t, []uint{1, 2, 3, 1}, res.Path)
	})

	t.Run("self loop", func(t *testing.T) {
		g := mustGraph(t, textNode(4, 1, goTo(t, 4)))
		res := DetectCycle(g)
		assert.True(t, res.HasCycle)
		assert.Equal(t, []uint{4, 4}, res.Path)
	})

	t.Run("loop behind a branch", func(t *testing.T) {
		g := mustGraph(t,
			Node{ID: 1, Position: 1, Kind: answers.KindSingleChoice, Options: []Option{
				{ID: 1, Text: "stop", Position: 1, Next: end()},
				{ID: 2, Text: "go", Position: 2, Next: goTo(t, 2)},
			}},
			textNode(2, 2, goTo(t, 3)),
			textNode(3, 3, goTo(t, 2)),
		)
		res := DetectCycle(g)
		assert.True(t, res.HasCycle)
		assert.Equal(t, []uint{2, 3, 2}, res.Path)
	})

	t.Run("forward jumps", func(t *testing.T) {
		g := mustGraph(t,
			textNode(1, 1, goTo(t, 3)),
			textNode(2, 2, nil),
			textNode(3, 3, nil),
		)
		assert.Equal(t, CycleResult{}, DetectCycle(g))
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid flow", func(t *testing.T) {
		g := mustGraph(t,
			Node{ID: 1, Position: 1, Kind: answers.KindSingleChoice, Options: []Option{
				{ID: 1, Text: "Red", Position: 1, Next: end()},
				{ID: 2, Text: "Blue", Position: 2, Next: goTo(t, 3)},
			}},
			textNode(2, 2, nil),
			textNode(3, 3, nil),
		)
		report := Validate(g)
		assert.True(t, report.Valid)
		assert.Empty(t, report.Errors)
		assert.NoError(t, report.Err())
		assert.True(t, ValidateStructure(g))
	})

	t.Run("cycle", func(t *testing.T) {
		g := mustGraph(t,
			textNode(1, 1, goTo(t, 2)),
			textNode(2, 2, goTo(t, 3)),
			textNode(3, 3, goTo(t, 1)),
		)
		report := Validate(g)
		assert.False(t, report.Valid)
		assert.Equal(t, []uint{1, 2, 3, 1}, report.CyclePath)
		assert.ErrorIs(t, report.Err(), ErrCycle)
		assert.ErrorIs(t, report.Err(), ErrNoPathToEnd)
		assert.Contains(t, report.Errors, "flow contains a cycle: Q1 -> Q2 -> Q3 -> Q1")
		assert.False(t, ValidateStructure(g))
	})

	t.Run("missing target", func(t *testing.T) {
		g := mustGraph(t, textNode(1, 1, goTo(t, 42)))
		report := Validate(g)
		assert.False(t, report.Valid)
		assert.ErrorIs(t, report.Err(), ErrMissingTarget)
		assert.Nil(t, report.CyclePath)
	})

	t.Run("no questions", func(t *testing.T) {
		report := Validate(mustGraph(t))
		assert.False(t, report.Valid)
		assert.ErrorIs(t, report.Err(), ErrEmptySurvey)
	})

	t.Run("choice without options", func(t *testing.T) {
		g := mustGraph(t, Node{ID: 1, Position: 1, Kind: answers.KindSingleChoice})
		report := Validate(g)
		assert.False(t, report.Valid)
		assert.ErrorIs(t, report.Err(), ErrNoOptions)
	})
}

func colorSurvey(t *testing.T) *Graph {
	return mustGraph(t,
		Node{ID: 1, Position: 1, Kind: answers.KindSingleChoice, Options: []Option{
			{ID: 11, Text: "Red", Position: 1, Next: end()},
			{ID: 12, Text: "Blue", Position: 2, Next: goTo(t, 3)},
		}},
		textNode(2, 2, nil),
		textNode(3, 3, nil),
	)
}

func TestResolveNextQuestion_Branching(t *testing.T) {
	nav := NewNavigator(colorSurvey(t))
	options := []string{"Red", "Blue"}

	red, err := answers.NewSingleChoice("Red", options)
	require.NoError(t, err)
	progress := &Progress{}
	res, err := nav.ResolveNextQuestion(progress, 1, red)
	require.NoError(t, err)
	assert.True(t, res.IsComplete)
	assert.Nil(t, res.Next)
	assert.Equal(t, []uint{1}, progress.Visited)
	require.NotNil(t, progress.LastAnswered)
	assert.Equal(t, uint(1), *progress.LastAnswered)

	blue, err := answers.NewSingleChoice("blue", options)
	require.NoError(t, err)
	res, err = nav.ResolveNextQuestion(&Progress{}, 1, blue)
	require.NoError(t, err)
	assert.False(t, res.IsComplete)
	require.NotNil(t, res.Next)
	assert.Equal(t, uint(3), res.Next.ID)

	_, err = answers.NewSingleChoice("Green", options)
	assert.ErrorIs(t, err, answers.ErrUnknownOption)
}

func TestDetermineNextStep_EndSurveyPrecedence(t *testing.T) {
	g := mustGraph(t,
		Node{ID: 4, Position: 4, Kind: answers.KindRating, DefaultNext: end()},
		textNode(5, 5, nil),
	)
	nav := NewNavigator(g)

	for v := 1; v <= 5; v++ {
		rating, err := answers.NewRating(v, answers.Scale{})
		require.NoError(t, err)

		step, err := nav.DetermineNextStep(4, rating)
		require.NoError(t, err)
		assert.True(t, step.IsEnd())

		res, err := nav.ResolveNextQuestion(&Progress{}, 4, rating)
		require.NoError(t, err)
		assert.True(t, res.IsComplete)
		assert.Nil(t, res.Next)
	}
}

func TestDetermineNextStep_RatingAsChoice(t *testing.T) {
	var opts []Option
	for i := 1; i <= 5; i++ {
		opts = append(opts, Option{ID: uint(100 + i), Text: string(rune('0' + i)), Position: i})
	}
	opts[4].Next = goTo(t, 3)

	nav := NewNavigator(mustGraph(t,
		Node{ID: 1, Position: 1, Kind: answers.KindRating, Options: opts},
		textNode(2, 2, nil),
		textNode(3, 3, nil),
	))

	five, err := answers.NewRating(5, answers.Scale{})
	require.NoError(t, err)
	step, err := nav.DetermineNextStep(1, five)
	require.NoError(t, err)
	assert.Equal(t, *goTo(t, 3), step)

	two, err := answers.NewRating(2, answers.Scale{})
	require.NoError(t, err)
	step, err = nav.DetermineNextStep(1, two)
	require.NoError(t, err)
	assert.Equal(t, *goTo(t, 2), step)
}

func TestDetermineNextStep_RatingNumericLabels(t *testing.T) {
	opts := []Option{
		{ID: 11, Text: "10", Position: 1},
		{ID: 12, Text: "20", Position: 2, Next: goTo(t, 3)},
		{ID: 13, Text: "30", Position: 3},
	}
	// value 3 routes by position, never by matching the label "3"
	opts[2].Next = Ptr(EndSurvey())

	nav := NewNavigator(mustGraph(t,
		Node{ID: 1, Position: 1, Kind: answers.KindRating, Options: opts},
		textNode(2, 2, nil),
		textNode(3, 3, nil),
	))

	scale := answers.Scale{Min: 1, Max: 3}
	two, err := answers.NewRating(2, scale)
	require.NoError(t, err)
	step, err := nav.DetermineNextStep(1, two)
	require.NoError(t, err)
	assert.Equal(t, *goTo(t, 3), step)

	three, err := answers.NewRating(3, scale)
	require.NoError(t, err)
	step, err = nav.DetermineNextStep(1, three)
	require.NoError(t, err)
	assert.True(t, step.IsEnd())
}

func TestDetermineNextStep_NonBranching(t *testing.T) {
	g := mustGraph(t,
		Node{ID: 1, Position: 1, Kind: answers.KindMultipleChoice, DefaultNext: goTo(t, 3), Options: []Option{
			{ID: 1, Text: "a", Position: 1},
			{ID: 2, Text: "b", Position: 2},
		}},
		textNode(2, 2, nil),
		textNode(3, 3, nil),
	)
	nav := NewNavigator(g)

	mc, err := answers.NewMultipleChoice([]string{"a", "b"}, []string{"a", "b"})
	require.NoError(t, err)
	step, err := nav.DetermineNextStep(1, mc)
	require.NoError(t, err)
	assert.Equal(t, *goTo(t, 3), step)

	step, err = nav.DetermineNextStep(2, mustText(t, "x"))
	require.NoError(t, err)
	assert.Equal(t, *goTo(t, 3), step)

	step, err = nav.DetermineNextStep(3, mustText(t, "x"))
	require.NoError(t, err)
	assert.True(t, step.IsEnd())

	_, err = nav.DetermineNextStep(1, mustText(t, "x"))
	assert.ErrorIs(t, err, ErrAnswerKindMismatch)

	_, err = nav.DetermineNextStep(9, mustText(t, "x"))
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestResolveNextQuestion_Guards(t *testing.T) {
	g := mustGraph(t,
		textNode(1, 1, nil),
		textNode(2, 2, nil),
		textNode(3, 3, goTo(t, 2)),
		textNode(4, 4, goTo(t, 99)),
	)
	nav := NewNavigator(g)

	t.Run("re-arrival at a visited question", func(t *testing.T) {
		progress := &Progress{Visited: []uint{1, 2}}
		_, err := nav.ResolveNextQuestion(progress, 3, mustText(t, "x"))
		assert.ErrorIs(t, err, ErrRevisit)
		assert.Equal(t, []uint{1, 2}, progress.Visited)
	})

	t.Run("current question already answered", func(t *testing.T) {
		progress := &Progress{Visited: []uint{1}}
		_, err := nav.ResolveNextQuestion(progress, 1, mustText(t, "x"))
		assert.ErrorIs(t, err, ErrAlreadyAnswered)
	})

	t.Run("step to a deleted question", func(t *testing.T) {
		_, err := nav.ResolveNextQuestion(&Progress{}, 4, mustText(t, "x"))
		assert.ErrorIs(t, err, ErrQuestionNotFound)
	})

	t.Run("unknown current question", func(t *testing.T) {
		_, err := nav.ResolveNextQuestion(&Progress{}, 7, mustText(t, "x"))
		assert.ErrorIs(t, err, ErrQuestionNotFound)
	})

	t.Run("walk to the end", func(t *testing.T) {
		progress := &Progress{}
		res, err := nav.ResolveNextQuestion(progress, 1, mustText(t, "a"))
		require.NoError(t, err)
		assert.Equal(t, uint(2), res.Next.ID)

		res, err = nav.ResolveNextQuestion(progress, 2, mustText(t, "b"))
		require.NoError(t, err)
		assert.Equal(t, uint(3), res.Next.ID)

		_, err = nav.ResolveNextQuestion(progress, 3, mustText(t, "c"))
		assert.ErrorIs(t, err, ErrRevisit)
		assert.Equal(t, []uint{1, 2}, progress.Visited)
	})
}
