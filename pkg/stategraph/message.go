package stategraph

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Message is a conversation entry for merge-messages channels. Its ID is the
// merge identity: a write carrying an existing ID replaces that entry in
// place instead of appending a duplicate.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with a generated ID.
func NewMessage(role, content string) Message {
	return Message{ID: uuid.NewString(), Role: role, Content: content}
}

// Messages reads a merge-messages channel from state, normalizing values
// that were rehydrated from a checkpoint. Returns nil if the channel is
// absent or empty.
func Messages(state State, channel string) []Message {
	v, ok := state[channel]
	if !ok {
		return nil
	}
	msgs, err := asMessages(v)
	if err != nil {
		return nil
	}
	return msgs
}

// asMessages coerces a channel value into a []Message. Accepts typed
// messages, single messages, and the []any/map[string]any shapes produced by
// JSON rehydration.
func asMessages(v any) ([]Message, error) {
	if v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case []Message:
		return val, nil
	case Message:
		return []Message{val}, nil
	case *Message:
		return []Message{*val}, nil
	}

	// Fall back to a JSON round trip for rehydrated shapes.
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("not a message value: %w", err)
	}
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		var one Message
		if err2 := json.Unmarshal(data, &one); err2 == nil {
			return []Message{one}, nil
		}
		return nil, fmt.Errorf("not a message value: %w", err)
	}
	return msgs, nil
}
