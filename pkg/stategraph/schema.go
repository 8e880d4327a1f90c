package stategraph

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// Policy identifies a channel's merge behavior.
type Policy string

// Channel merge policies.
const (
	// PolicyOverwrite replaces the current value with the incoming one.
	// Omitting the channel from an Update leaves the value unchanged.
	PolicyOverwrite Policy = "overwrite"

	// PolicyAppend concatenates incoming values onto the current list.
	// A single incoming item is wrapped as a one-element list.
	PolicyAppend Policy = "append"

	// PolicyMergeMessages appends incoming messages, except that a message
	// whose ID matches an existing entry replaces it in place.
	PolicyMergeMessages Policy = "merge-messages"

	// PolicyCustom marks a caller-supplied reducer.
	PolicyCustom Policy = "custom"
)

// ReducerFunc combines a channel's current value with an incoming partial
// value. Reducers must be pure: same inputs, same output, no side effects.
type ReducerFunc func(current, incoming any) (any, error)

// Channel declares a named slot in the shared state along with its merge
// policy and optional default.
type Channel struct {
	// Name is the channel key in State and Update maps.
	Name string

	// Policy identifies the merge behavior; informational for built-ins,
	// and used by the subgraph adapter to translate values across schemas.
	Policy Policy

	// Reduce merges an incoming value into the current one.
	Reduce ReducerFunc

	// Default produces the channel's initial value, used when a run starts
	// and when a subgraph requires a channel its parent does not carry.
	// Nil means the channel starts absent.
	Default func() any

	// Required marks a channel a subgraph cannot run without. A required
	// channel with no default and no inbound value is a SchemaError.
	Required bool
}

// WithDefault returns a copy of the channel with a default value constructor.
func (c Channel) WithDefault(fn func() any) Channel {
	c.Default = fn
	return c
}

// AsRequired returns a copy of the channel marked required.
func (c Channel) AsRequired() Channel {
	c.Required = true
	return c
}

// Overwrite declares a last-write-wins channel.
func Overwrite(name string) Channel {
	return Channel{Name: name, Policy: PolicyOverwrite, Reduce: reduceOverwrite}
}

// Append declares a list channel that concatenates writes in call order.
func Append(name string) Channel {
	return Channel{Name: name, Policy: PolicyAppend, Reduce: reduceAppend}
}

// MergeMessages declares a message-list channel with ID-based upsert.
func MergeMessages(name string) Channel {
	return Channel{Name: name, Policy: PolicyMergeMessages, Reduce: reduceMessages}
}

// Custom declares a channel with a caller-supplied reducer.
func Custom(name string, fn ReducerFunc) Channel {
	if fn == nil {
		panic("stategraph: custom reducer cannot be nil")
	}
	return Channel{Name: name, Policy: PolicyCustom, Reduce: fn}
}

// Schema is the set of channels a graph's state may hold. Writes to
// undeclared channels fail with a SchemaError; channels not written are
// left untouched, never reset.
type Schema struct {
	channels map[string]Channel
	order    []string
}

// NewSchema creates a schema from the given channel declarations.
// Panics on duplicate or empty channel names.
func NewSchema(channels ...Channel) *Schema {
	s := &Schema{channels: make(map[string]Channel, len(channels))}
	for _, ch := range channels {
		if ch.Name == "" {
			panic("stategraph: channel name cannot be empty")
		}
		if _, exists := s.channels[ch.Name]; exists {
			panic(fmt.Sprintf("stategraph: duplicate channel: %s", ch.Name))
		}
		if ch.Reduce == nil {
			ch.Reduce = reduceOverwrite
			ch.Policy = PolicyOverwrite
		}
		s.channels[ch.Name] = ch
		s.order = append(s.order, ch.Name)
	}
	return s
}

// Has reports whether the schema declares the channel.
func (s *Schema) Has(name string) bool {
	_, ok := s.channels[name]
	return ok
}

// Channel returns the declaration for a channel name.
func (s *Schema) Channel(name string) (Channel, bool) {
	ch, ok := s.channels[name]
	return ch, ok
}

// Names returns the declared channel names in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Initial builds the starting state: every channel with a default gets its
// default value, everything else starts absent.
func (s *Schema) Initial() State {
	state := State{}
	for _, name := range s.order {
		ch := s.channels[name]
		if ch.Default != nil {
			state[name] = ch.Default()
		}
	}
	return state
}

// Apply merges a partial update into the state through each written
// channel's reducer, returning a new state. Update keys are processed in
// sorted order so the merge is deterministic. A write to an undeclared
// channel fails with a SchemaError and the input state is returned
// unmodified.
func (s *Schema) Apply(state State, upd Update) (State, error) {
	if len(upd) == 0 {
		return state, nil
	}

	keys := make([]string, 0, len(upd))
	for k := range upd {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Validate before touching anything, so a bad update leaves no trace.
	for _, k := range keys {
		if _, ok := s.channels[k]; !ok {
			return state, &SchemaError{Channel: k, Op: "merge", Err: errors.New("channel not declared")}
		}
	}

	next := make(State, len(state)+len(upd))
	for k, v := range state {
		next[k] = v
	}

	for _, k := range keys {
		ch := s.channels[k]
		merged, err := ch.Reduce(next[k], upd[k])
		if err != nil {
			return state, &SchemaError{Channel: k, Op: "merge", Err: err}
		}
		next[k] = merged
	}
	return next, nil
}

// reduceOverwrite implements last-write-wins. A nil incoming value is the
// explicit "no update" sentinel and keeps the current value.
func reduceOverwrite(current, incoming any) (any, error) {
	if incoming == nil {
		return current, nil
	}
	return incoming, nil
}

// reduceAppend concatenates the incoming value(s) onto the current list.
// Order is write order within a superstep, then across supersteps.
func reduceAppend(current, incoming any) (any, error) {
	out := asList(current)
	out = append(out, asList(incoming)...)
	return out, nil
}

// reduceMessages upserts incoming messages by ID: a match replaces the
// existing entry in place, preserving its position; everything else appends.
func reduceMessages(current, incoming any) (any, error) {
	have, err := asMessages(current)
	if err != nil {
		return nil, err
	}
	add, err := asMessages(incoming)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(have))
	for i, m := range have {
		index[m.ID] = i
	}

	out := make([]Message, len(have))
	copy(out, have)
	for _, m := range add {
		if i, ok := index[m.ID]; ok && m.ID != "" {
			out[i] = m
			continue
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}
	return out, nil
}

// asList coerces a value into a []any, wrapping single items.
func asList(v any) []any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
