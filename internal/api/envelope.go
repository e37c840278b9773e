package api

import (
	"bytes"
	"encoding/json"
)

// envelope is the backend's response wrapper: {success, message, data}.
// Some endpoints return their payload flat next to success instead.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// messageOf extracts the user-facing message from an error body
func messageOf(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Message
}

// payloadOf returns the nested data when present, otherwise the whole body
func payloadOf(body []byte) json.RawMessage {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && !isNull(env.Data) {
		return env.Data
	}
	return body
}

// decodePayload decodes the payload into v. When keys are given the first
// one present in the payload object is decoded instead of the payload.
func decodePayload(body []byte, v any, keys ...string) error {
	raw := payloadOf(body)
	if inner, ok := lookup(raw, keys...); ok {
		raw = inner
	}
	return json.Unmarshal(raw, v)
}

// decodeKey is decodePayload without the fallback: it reports false when
// none of keys is present.
func decodeKey(body []byte, v any, keys ...string) (bool, error) {
	inner, ok := lookup(payloadOf(body), keys...)
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(inner, v)
}

func lookup(raw json.RawMessage, keys ...string) (json.RawMessage, bool) {
	if len(keys) == 0 {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return nil, false
	}
	for _, key := range keys {
		if inner, ok := obj[key]; ok && !isNull(inner) {
			return inner, true
		}
	}
	return nil, false
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
