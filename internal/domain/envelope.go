package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type MessageKind int

const (
	MessageUnknown MessageKind = iota
	MessageJob
	MessageNotification
)

func (k MessageKind) String() string {
	switch k {
	case MessageJob:
		return MessageTypeJob
	case MessageNotification:
		return MessageTypeNotification
	default:
		return "Unknown"
	}
}

// ClassifyMessage reports which envelope body carries. Bodies that are not a
// JSON object, or whose Type is not recognized, are MessageUnknown.
func ClassifyMessage(body []byte) MessageKind {
	fields, err := decodeObject(body)
	if err != nil {
		return MessageUnknown
	}
	var msgType string
	if err := json.Unmarshal(fields["Type"], &msgType); err != nil {
		return MessageUnknown
	}
	switch msgType {
	case MessageTypeJob:
		return MessageJob
	case MessageTypeNotification:
		return MessageNotification
	default:
		return MessageUnknown
	}
}

// IncrementRetries returns body with NumRetries bumped by one. A missing
// counter becomes 1. Every other key is carried over untouched.
func IncrementRetries(body []byte) ([]byte, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	n, err := numRetries(fields)
	if err != nil {
		return nil, err
	}
	fields["NumRetries"] = json.RawMessage(fmt.Sprintf("%d", n+1))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// RetryCount returns the NumRetries of any envelope, 0 when absent.
func RetryCount(body []byte) (int, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return 0, err
	}
	return numRetries(fields)
}
