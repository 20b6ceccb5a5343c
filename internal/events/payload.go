package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/prperemyshlev/platform-services/internal/apperror"
)

// Payload is a decoded envelope body. Numbers are kept as json.Number so
// they are echoed back exactly as received.
type Payload map[string]any

// Result is the JSON-serializable outcome of a handler
type Result map[string]any

// Type returns the raw discriminator, or "unknown" when it is missing or not a string
func (p Payload) Type() string {
	if s, ok := p["type"].(string); ok {
		return s
	}
	return string(KindUnknown)
}

// Get returns the value under key, nil when absent
func (p Payload) Get(key string) any {
	return p[key]
}

// GetOr returns the value under key, or def when absent or null
func (p Payload) GetOr(key string, def any) any {
	if v, ok := p[key]; ok && v != nil {
		return v
	}
	return def
}

// String returns the value under key when it is a string
func (p Payload) String(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// ParsePayload decodes a message body that must be a JSON object
func ParsePayload(body string) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, apperror.MalformedPayload("Invalid JSON", err)
	}
	if dec.More() {
		return nil, apperror.MalformedPayload("Invalid JSON", fmt.Errorf("trailing data after JSON value"))
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, apperror.MalformedPayload("payload must be a JSON object", nil)
	}
	return Payload(obj), nil
}
