package model

import (
	"encoding/json"
	"fmt"
)

// EventType identifies the kind of entry on the crawl event stream.
type EventType string

// Event types emitted by the crawler.
const (
	// EventTypeProgress carries a completion percentage between 0 and 100.
	EventTypeProgress EventType = "progress"

	// EventTypeResult carries one finished PageRecord.
	EventTypeResult EventType = "result"
)

// Event is one entry on the crawl event stream. The stream is ordered and
// append-only: events are never retracted or reordered, and the final event
// of every crawl is a progress event with value 100.
//
// On the wire an event is a single self-contained JSON object:
//
//	{"type":"progress","value":42}
//	{"type":"result","value":{"url":...,"statusCode":...}}
//
// Design decision: We use one union type with a custom JSON codec rather
// than two event structs because:
//  1. The stream interleaves both kinds and consumers switch on "type"
//  2. A single channel element type keeps the producer loop simple
//  3. The wire format is fixed by the API contract, not by Go field layout
type Event struct {
	// Type discriminates the union.
	Type EventType

	// Progress is the completion percentage. Valid only for progress events.
	Progress int

	// Page is the finished record. Valid only for result events.
	Page *PageRecord
}

// NewProgressEvent creates a progress event with the given percentage.
func NewProgressEvent(percent int) Event {
	return Event{Type: EventTypeProgress, Progress: percent}
}

// NewResultEvent creates a result event carrying the given page record.
func NewResultEvent(page PageRecord) Event {
	return Event{Type: EventTypeResult, Page: &page}
}

// eventWire is the serialized shape of an Event.
type eventWire struct {
	Type  EventType       `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the event in its wire format.
func (e Event) MarshalJSON() ([]byte, error) {
	var value any
	switch e.Type {
	case EventTypeProgress:
		value = e.Progress
	case EventTypeResult:
		if e.Page == nil {
			return nil, fmt.Errorf("result event has no page record")
		}
		value = e.Page
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventWire{Type: e.Type, Value: raw})
}

// UnmarshalJSON decodes an event from its wire format. Consumers use this
// to parse one newline-delimited frame at a time; a malformed frame yields
// an error the consumer can log and drop without aborting the stream.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire eventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch wire.Type {
	case EventTypeProgress:
		var percent int
		if err := json.Unmarshal(wire.Value, &percent); err != nil {
			return fmt.Errorf("invalid progress value: %w", err)
		}
		*e = NewProgressEvent(percent)
	case EventTypeResult:
		var page PageRecord
		if err := json.Unmarshal(wire.Value, &page); err != nil {
			return fmt.Errorf("invalid result value: %w", err)
		}
		*e = Event{Type: EventTypeResult, Page: &page}
	default:
		return fmt.Errorf("unknown event type %q", wire.Type)
	}
	return nil
}
