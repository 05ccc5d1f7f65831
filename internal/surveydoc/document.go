// Package surveydoc is the portable form of a survey: questions in order with
// flow steps that point at 1-based question positions instead of database ids.
package surveydoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"survey-bot-backend/internal/answers"
	"survey-bot-backend/internal/flow"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrInvalidDocument = errors.New("invalid survey document")

type Document struct {
	Title                  string     `json:"title" yaml:"title"`
	Description            string     `json:"description,omitempty" yaml:"description,omitempty"`
	AllowMultipleResponses bool       `json:"allow_multiple_responses,omitempty" yaml:"allow_multiple_responses,omitempty"`
	Questions              []Question `json:"questions" yaml:"questions"`
}

type Question struct {
	Text      string       `json:"text" yaml:"text"`
	Kind      answers.Kind `json:"kind" yaml:"kind"`
	ScaleMin  *int         `json:"scale_min,omitempty" yaml:"scale_min,omitempty"`
	ScaleMax  *int         `json:"scale_max,omitempty" yaml:"scale_max,omitempty"`
	NumberMin *float64     `json:"number_min,omitempty" yaml:"number_min,omitempty"`
	NumberMax *float64     `json:"number_max,omitempty" yaml:"number_max,omitempty"`
	DateMin   *string      `json:"date_min,omitempty" yaml:"date_min,omitempty"`
	DateMax   *string      `json:"date_max,omitempty" yaml:"date_max,omitempty"`
	Next      *StepRef     `json:"next,omitempty" yaml:"next,omitempty"`
	Options   []Option     `json:"options,omitempty" yaml:"options,omitempty"`
}

type Option struct {
	Text string   `json:"text" yaml:"text"`
	Next *StepRef `json:"next,omitempty" yaml:"next,omitempty"`
}

// StepRef is either {end: true} or {question: N} with N a 1-based position.
type StepRef struct {
	End      bool `json:"end,omitempty" yaml:"end,omitempty"`
	Question int  `json:"question,omitempty" yaml:"question,omitempty"`
}

func EndRef() *StepRef { return &StepRef{End: true} }

func QuestionRef(position int) *StepRef { return &StepRef{Question: position} }

func (r *StepRef) String() string {
	if r == nil {
		return "-"
	}
	if r.End {
		return "end"
	}
	return fmt.Sprintf("Q%d", r.Question)
}

// Step resolves the reference with ids, where ids[i] is the id of the
// question at position i+1.
func (r *StepRef) Step(ids []uint) (*flow.Step, error) {
	if r == nil {
		return nil, nil
	}
	if r.End == (r.Question != 0) {
		return nil, fmt.Errorf("%w: a step sets exactly one of end or question", ErrInvalidDocument)
	}
	if r.End {
		return flow.Ptr(flow.EndSurvey()), nil
	}
	if r.Question < 1 || r.Question > len(ids) {
		return nil, fmt.Errorf("%w: step points at question %d of %d", ErrInvalidDocument, r.Question, len(ids))
	}
	s, err := flow.GoToQuestion(ids[r.Question-1])
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FormatFor picks the format from a file extension. Anything but .yaml/.yml is JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, FormatFor(path))
}

func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	if err := doc.Check(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func Marshal(doc *Document, format Format) ([]byte, error) {
	if format == FormatYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Check catches what a document cannot express at all. Flow problems are left
// to the flow validator so they are reported together.
func (d *Document) Check() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidDocument)
	}
	for i, q := range d.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: question %d has no text", ErrInvalidDocument, i+1)
		}
		if !q.Kind.Valid() {
			return fmt.Errorf("%w: question %d has unknown kind %q", ErrInvalidDocument, i+1, q.Kind)
		}
	}
	return nil
}

// Nodes builds flow nodes with question ids equal to positions and option ids
// numbered across the document. Steps pointing past the last question are kept
// so the validator reports them as missing targets.
func (d *Document) Nodes() ([]flow.Node, error) {
	nodes := make([]flow.Node, 0, len(d.Questions))
	var optionID uint
	for i, q := range d.Questions {
		node := flow.Node{
			ID:       uint(i + 1),
			Position: i + 1,
			Kind:     q.Kind,
		}
		step, err := q.Next.positionStep()
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		node.DefaultNext = step
		for j, o := range q.Options {
			optionID++
			step, err := o.Next.positionStep()
			if err != nil {
				return nil, fmt.Errorf("question %d option %d: %w", i+1, j+1, err)
			}
			node.Options = append(node.Options, flow.Option{
				ID:       optionID,
				Text:     o.Text,
				Position: j + 1,
				Next:     step,
			})
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Graph is Nodes followed by flow.NewGraph.
func (d *Document) Graph() (*flow.Graph, error) {
	nodes, err := d.Nodes()
	if err != nil {
		return nil, err
	}
	return flow.NewGraph(nodes)
}

func (r *StepRef) positionStep() (*flow.Step, error) {
	if r == nil {
		return nil, nil
	}
	if r.End == (r.Question != 0) {
		return nil, fmt.Errorf("%w: a step sets exactly one of end or question", ErrInvalidDocument)
	}
	if r.End {
		return flow.Ptr(flow.EndSurvey()), nil
	}
	if r.Question < 1 {
		return nil, fmt.Errorf("%w: step points at question %d", ErrInvalidDocument, r.Question)
	}
	s, err := flow.GoToQuestion(uint(r.Question))
	if err != nil {
		return nil, err
	}
	return &s, nil
}
