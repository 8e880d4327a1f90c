package stategraph

import (
	"encoding/json"
	"fmt"
)

// State is the shared state of a run: a mapping from channel name to current
// value. The executor is its sole writer between supersteps; node bodies
// receive a snapshot and must return an Update instead of mutating it.
type State map[string]any

// Update is a partial state update returned by a node body: a subset of
// declared channels. A channel absent from the update is left unchanged.
type Update map[string]any

// Clone returns an independent deep copy of the state via a JSON round
// trip. Rehydrated values are normalized lazily by channel reducers.
func (s State) Clone() (State, error) {
	if s == nil {
		return State{}, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializeState, err)
	}
	var clone State
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}
	if clone == nil {
		clone = State{}
	}
	return clone, nil
}

// String reads a string channel, returning "" if absent or mistyped.
func (s State) String(channel string) string {
	if v, ok := s[channel].(string); ok {
		return v
	}
	return ""
}

// Int reads an integer channel. JSON rehydration turns numbers into
// float64, so both shapes are accepted.
func (s State) Int(channel string) int {
	switch v := s[channel].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Bool reads a boolean channel, returning false if absent or mistyped.
func (s State) Bool(channel string) bool {
	if v, ok := s[channel].(bool); ok {
		return v
	}
	return false
}

// Strings reads an append channel as a string slice, tolerating the []any
// shape produced by the append reducer and by JSON rehydration.
func (s State) Strings(channel string) []string {
	switch v := s[channel].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// List reads an append channel as a generic slice.
func (s State) List(channel string) []any {
	return asList(s[channel])
}
