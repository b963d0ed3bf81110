// Package phrase defines the natural-language parser interface the engine
// consumes. The parser itself lives outside the core; only its output types
// are owned here. A nil parse result is not an error — callers fall back to
// the raw text as title with a fixed default time.
package phrase

import "time"

// ParsedEvent is the structured result of parsing free text into an event.
type ParsedEvent struct {
	Title string
	Start time.Time
	End   time.Time
	Notes string
}

// ParsedReminder is the structured result of parsing free text into a reminder.
type ParsedReminder struct {
	Title string
	Due   *time.Time
	Notes string
}

// Parser turns free text into structured event or reminder fields. Both
// methods return nil when the text does not parse.
type Parser interface {
	ParseEvent(text string) *ParsedEvent
	ParseReminder(text string) *ParsedReminder
}
