package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Params is the decoded Params mapping of a Job envelope.
type Params map[string]any

func (p Params) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Decode re-encodes the mapping and unmarshals it into dst, so handlers can
// work with typed parameter structs.
func (p Params) Decode(dst any) error {
	data, err := json.Marshal(p)
	if err != nil {
		return NewValidationError("Params", err.Error())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return NewValidationError("Params", err.Error())
	}
	return nil
}

// PreferredOutput is one requested rendition of an image. On the wire it is
// either a [Width, Height, Key] triple or an object with those fields.
type PreferredOutput struct {
	Width  int    `json:"Width"`
	Height int    `json:"Height"`
	Key    string `json:"Key"`
}

func (o *PreferredOutput) UnmarshalJSON(data []byte) error {
	var triple []json.RawMessage
	if err := json.Unmarshal(data, &triple); err == nil {
		if len(triple) != 3 {
			return fmt.Errorf("preferred output must have 3 elements, got %d", len(triple))
		}
		w, err := intFromJSON(triple[0])
		if err != nil {
			return fmt.Errorf("width: %w", err)
		}
		h, err := intFromJSON(triple[1])
		if err != nil {
			return fmt.Errorf("height: %w", err)
		}
		var key string
		if err := json.Unmarshal(triple[2], &key); err != nil {
			return fmt.Errorf("key: %w", err)
		}
		*o = PreferredOutput{Width: w, Height: h, Key: key}
		return nil
	}

	type plain PreferredOutput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = PreferredOutput(p)
	return nil
}

func (o PreferredOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{o.Width, o.Height, o.Key})
}

// Copy reports whether the output is a plain copy of the input.
func (o PreferredOutput) Copy() bool {
	return o.Width == 0 || o.Height == 0
}

func intFromJSON(raw json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		n = json.Number(s)
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
