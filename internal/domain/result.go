package domain

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

type ResultState string

const (
	StateProgressing ResultState = "PROGRESSING"
	StateCompleted   ResultState = "COMPLETED"
	StateError       ResultState = "ERROR"

	ResultFileName = "output.json"
)

func (s ResultState) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Output describes one produced artifact.
type Output struct {
	Key        string  `json:"Key"`
	Type       string  `json:"Type"`
	Width      int     `json:"Width,omitempty"`
	Height     int     `json:"Height,omitempty"`
	PageNumber int     `json:"PageNumber,omitempty"`
	Duration   float64 `json:"Duration,omitempty"`
}

// ResultDescriptor is the persisted outcome of one job execution, polled by
// clients at <OutputKeyPrefix>/output.json.
type ResultDescriptor struct {
	State           ResultState    `json:"state"`
	InputKey        string         `json:"InputKey"`
	OutputKeyPrefix string         `json:"OutputKeyPrefix"`
	Input           map[string]any `json:"Input"`
	Outputs         []Output       `json:"Outputs"`
	Error           string         `json:"Error,omitempty"`
}

func NewResultDescriptor(inputKey, outputKeyPrefix string) *ResultDescriptor {
	return &ResultDescriptor{
		State:           StateProgressing,
		InputKey:        inputKey,
		OutputKeyPrefix: outputKeyPrefix,
		Input:           map[string]any{},
		Outputs:         []Output{},
	}
}

// Finish moves the descriptor to its terminal state.
func (r *ResultDescriptor) Finish(err error) {
	if err != nil {
		r.State = StateError
		r.Error = err.Error()
		return
	}
	r.State = StateCompleted
	r.Error = ""
}

// ResultKey returns the object key of the descriptor for a prefix.
func ResultKey(outputKeyPrefix string) string {
	return path.Join(outputKeyPrefix, ResultFileName)
}

// OutputKey joins an output name under a prefix.
func OutputKey(outputKeyPrefix, name string) string {
	return path.Join(outputKeyPrefix, name)
}

// ResultSummary is the part of a stored output.json that both a job's
// descriptor and a transcoder notification carry. Field matching is case
// insensitive so it decodes either shape.
type ResultSummary struct {
	State          ResultState `json:"state"`
	Error          string      `json:"Error"`
	MessageDetails string      `json:"messageDetails"`
	Outputs        []struct {
		Key string `json:"Key"`
	} `json:"Outputs"`
}

func ParseResultSummary(data []byte) (*ResultSummary, error) {
	var s ResultSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &s, nil
}

// Message is the failure text, whichever shape it came from.
func (s *ResultSummary) Message() string {
	if s.Error != "" {
		return s.Error
	}
	return s.MessageDetails
}

// OutputKeys returns full object keys. Notification outputs are relative to
// the prefix, descriptor outputs already include it.
func (s *ResultSummary) OutputKeys(outputKeyPrefix string) []string {
	base := strings.TrimSuffix(outputKeyPrefix, "/") + "/"
	keys := make([]string, 0, len(s.Outputs))
	for _, o := range s.Outputs {
		if o.Key == "" {
			continue
		}
		if strings.HasPrefix(o.Key, base) {
			keys = append(keys, o.Key)
		} else {
			keys = append(keys, OutputKey(outputKeyPrefix, o.Key))
		}
	}
	return keys
}
