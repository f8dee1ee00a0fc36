package models

import (
	"bytes"
	"encoding/json"
)

// DecodeMessage yields either a validated message or a drop signal (ok == false).
// Both role and content must be JSON strings and the role must be "user" or
// "assistant"; partially valid objects are never accepted.
func DecodeMessage(raw json.RawMessage) (ChatMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return ChatMessage{}, false
	}

	role, ok := decodeString(fields["role"])
	if !ok || (role != RoleUser && role != RoleAssistant) {
		return ChatMessage{}, false
	}

	content, ok := decodeString(fields["content"])
	if !ok {
		return ChatMessage{}, false
	}

	return ChatMessage{Role: role, Content: content}, true
}

// decodeString accepts only JSON strings; null, numbers and objects are rejected.
func decodeString(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}
