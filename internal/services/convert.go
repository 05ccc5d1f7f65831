package services

import (
	"sort"

	"survey-bot-backend/internal/answers"
	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/models"

	"cloud.google.com/go/civil"
)

func flowNode(q models.Question) flow.Node {
	node := flow.Node{
		ID:          q.ID,
		Position:    q.OrderNum,
		Kind:        q.Kind,
		DefaultNext: presentOrNil(q.DefaultNext),
	}
	for _, o := range sortedOptions(q.Options) {
		node.Options = append(node.Options, flow.Option{
			ID:       o.ID,
			Text:     o.Text,
			Position: o.OrderNum,
			Next:     presentOrNil(o.Next),
		})
	}
	return node
}

func presentOrNil(s *flow.Step) *flow.Step {
	if !s.Present() {
		return nil
	}
	cp := *s
	return &cp
}

func sortedOptions(opts []models.Option) []models.Option {
	out := append([]models.Option(nil), opts...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderNum != out[j].OrderNum {
			return out[i].OrderNum < out[j].OrderNum
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// QuestionConstraints returns what the answer factories validate against.
func QuestionConstraints(q models.Question) answers.Constraints {
	c := answers.Constraints{
		Bounds: answers.Bounds{Min: q.NumberMin, Max: q.NumberMax},
	}
	for _, o := range sortedOptions(q.Options) {
		c.Options = append(c.Options, o.Text)
	}
	if q.ScaleMin != nil && q.ScaleMax != nil {
		c.Scale = answers.Scale{Min: *q.ScaleMin, Max: *q.ScaleMax}
	}
	c.Dates.Min = parseDateBound(q.DateMin)
	c.Dates.Max = parseDateBound(q.DateMax)
	return c
}

func parseDateBound(s *string) *civil.Date {
	if s == nil || *s == "" {
		return nil
	}
	d, err := civil.ParseDate(*s)
	if err != nil {
		return nil
	}
	return &d
}

// RatingScale returns the configured scale of a rating question, or the default.
func RatingScale(q models.Question) answers.Scale {
	if q.ScaleMin != nil && q.ScaleMax != nil {
		return answers.Scale{Min: *q.ScaleMin, Max: *q.ScaleMax}
	}
	return answers.DefaultScale
}
