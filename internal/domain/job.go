package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	MessageTypeJob          = "Job"
	MessageTypeNotification = "Notification"

	// DefaultMaxRetries is the number of reposts a message gets before it is
	// dropped on decode.
	DefaultMaxRetries = 3

	ParamInputKey        = "InputKey"
	ParamOutputKeyPrefix = "OutputKeyPrefix"
)

// JobSpecification describes one unit of work: which registered handler to
// run and with what parameters.
type JobSpecification struct {
	JobName         string
	InputKey        string
	OutputKeyPrefix string
	ExtraParams     map[string]any
}

// DecodedJob is a job specification received from the queue along with the
// number of times it has already been reposted.
type DecodedJob struct {
	Spec       JobSpecification
	Params     Params
	NumRetries int
}

type jobEnvelope struct {
	Type       string         `json:"Type"`
	Job        string         `json:"Job"`
	Params     map[string]any `json:"Params"`
	NumRetries int            `json:"NumRetries,omitempty"`
}

// Params returns the flat parameter map sent to the handler.
func (s JobSpecification) Params() Params {
	params := Params{
		ParamInputKey:        s.InputKey,
		ParamOutputKeyPrefix: s.OutputKeyPrefix,
	}
	for k, v := range s.ExtraParams {
		params[k] = v
	}
	return params
}

// Encode serializes spec into a Job envelope.
func Encode(spec JobSpecification) ([]byte, error) {
	if spec.InputKey == "" && spec.OutputKeyPrefix == "" {
		return nil, NewValidationError("", "InputKey and OutputKeyPrefix are required fields")
	}
	if spec.JobName == "" {
		return nil, NewValidationError("Job", "is required")
	}
	data, err := json.Marshal(jobEnvelope{
		Type:   MessageTypeJob,
		Job:    spec.JobName,
		Params: spec.Params(),
	})
	if err != nil {
		return nil, NewValidationError("Params", fmt.Sprintf("not serializable: %v", err))
	}
	return data, nil
}

// Decode parses a Job envelope. Every failure is terminal and wraps
// ErrNoMoreRetries; a message that cannot be decoded now never will be.
// maxRetries <= 0 selects DefaultMaxRetries.
func Decode(body []byte, maxRetries int) (*DecodedJob, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	fields, err := decodeObject(body)
	if err != nil {
		return nil, terminal(NewValidationError("", err.Error()))
	}

	var msgType string
	if raw, ok := fields["Type"]; !ok || json.Unmarshal(raw, &msgType) != nil || msgType != MessageTypeJob {
		return nil, terminal(NewValidationError("Type", fmt.Sprintf("must be %q", MessageTypeJob)))
	}

	var name string
	raw, ok := fields["Job"]
	if !ok {
		return nil, terminal(NewValidationError("Job", "is required"))
	}
	if err := json.Unmarshal(raw, &name); err != nil {
		return nil, terminal(NewValidationError("Job", "must be a string"))
	}

	params, err := decodeParams(fields["Params"])
	if err != nil {
		return nil, terminal(err)
	}

	retries, err := numRetries(fields)
	if err != nil {
		return nil, terminal(err)
	}
	if retries >= maxRetries {
		return nil, terminal(fmt.Errorf("job %s reached %d retries", name, retries))
	}

	spec := JobSpecification{
		JobName:         name,
		InputKey:        params.String(ParamInputKey),
		OutputKeyPrefix: params.String(ParamOutputKeyPrefix),
	}
	for k, v := range params {
		if k == ParamInputKey || k == ParamOutputKeyPrefix {
			continue
		}
		if spec.ExtraParams == nil {
			spec.ExtraParams = make(map[string]any)
		}
		spec.ExtraParams[k] = v
	}

	return &DecodedJob{Spec: spec, Params: params, NumRetries: retries}, nil
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("message is not a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("message is not a JSON object: %v", err)
	}
	return fields, nil
}

func decodeParams(raw json.RawMessage) (Params, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, NewValidationError("Params", "must be a mapping")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var params Params
	if err := dec.Decode(&params); err != nil {
		return nil, NewValidationError("Params", "must be a mapping")
	}
	return params, nil
}

func numRetries(fields map[string]json.RawMessage) (int, error) {
	raw, ok := fields["NumRetries"]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, NewValidationError("NumRetries", "must be an integer")
	}
	return n, nil
}

func terminal(err error) error {
	return fmt.Errorf("%w: %w", ErrNoMoreRetries, err)
}
