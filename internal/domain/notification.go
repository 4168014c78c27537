package domain

import (
	"encoding/json"
	"fmt"
)

// TranscoderNotification is the completion payload a transcoder publishes
// when a job changes state. Raw keeps the message as received so it can be
// persisted verbatim as the job's result descriptor.
type TranscoderNotification struct {
	State           ResultState          `json:"state"`
	JobID           string               `json:"jobId"`
	PipelineID      string               `json:"pipelineId,omitempty"`
	OutputKeyPrefix string               `json:"outputKeyPrefix"`
	Input           map[string]any       `json:"input,omitempty"`
	Outputs         []NotificationOutput `json:"outputs,omitempty"`
	ErrorCode       int                  `json:"errorCode,omitempty"`
	MessageDetails  string               `json:"messageDetails,omitempty"`
	Raw             map[string]any       `json:"-"`
}

type NotificationOutput struct {
	Key              string  `json:"key"`
	PresetID         string  `json:"presetId,omitempty"`
	Status           string  `json:"status,omitempty"`
	Duration         float64 `json:"duration,omitempty"`
	Width            int     `json:"width,omitempty"`
	Height           int     `json:"height,omitempty"`
	ThumbnailPattern string  `json:"thumbnailPattern,omitempty"`
	StatusDetail     string  `json:"statusDetail,omitempty"`
}

type notificationEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// NewNotificationEnvelope wraps n the way the transcoder's topic delivers it:
// the payload travels as a JSON string inside the Message field.
func NewNotificationEnvelope(n TranscoderNotification) ([]byte, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return json.Marshal(notificationEnvelope{
		Type:    MessageTypeNotification,
		Message: string(payload),
	})
}

// DecodeNotification extracts the transcoder payload from a Notification
// envelope. A nil result with a nil error means the envelope carried an
// empty message. Shape errors are terminal.
func DecodeNotification(body []byte, maxRetries int) (*TranscoderNotification, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	fields, err := decodeObject(body)
	if err != nil {
		return nil, terminal(NewValidationError("", err.Error()))
	}
	retries, err := numRetries(fields)
	if err != nil {
		return nil, terminal(err)
	}
	if retries >= maxRetries {
		return nil, terminal(fmt.Errorf("notification reached %d retries", retries))
	}

	var message string
	if raw, ok := fields["Message"]; ok {
		if err := json.Unmarshal(raw, &message); err != nil {
			return nil, terminal(NewValidationError("Message", "must be a JSON string"))
		}
	}
	if message == "" || message == "null" {
		return nil, nil
	}

	var n TranscoderNotification
	if err := json.Unmarshal([]byte(message), &n); err != nil {
		return nil, terminal(NewValidationError("Message", fmt.Sprintf("is not a notification: %v", err)))
	}
	if err := json.Unmarshal([]byte(message), &n.Raw); err != nil {
		return nil, terminal(NewValidationError("Message", fmt.Sprintf("is not a notification: %v", err)))
	}
	return &n, nil
}
