// Package speech implements narration for the immersive reader: an Engine
// abstraction over a text-to-speech facility, a playback Controller that
// drives sequential paragraph narration, and a paced synthetic engine that
// emits word boundaries on a timer so highlight streaming works without a
// platform TTS.
//
// The narration facility is a single process-wide resource. Exactly one
// Controller owns an Engine at a time; the cancel-before-start discipline
// inside the Controller guarantees no two utterances are ever active.
package speech

import "errors"

// ErrCanceled is reported by an engine when an utterance is interrupted by
// Cancel. Operator-triggered cancellation is expected and is never treated
// as a narration failure.
var ErrCanceled = errors.New("utterance canceled")

// Voice describes one selectable narration voice.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Default  bool   `json:"default"`
}

// Utterance is one unit of narration: a single paragraph, with the voice and
// rate captured at start. Changing voice or rate later never alters an
// utterance already in progress.
type Utterance struct {
	// ID tags the utterance; engines echo it on every event so the
	// controller can discard events from a superseded utterance.
	ID    uint64
	Text  string
	Voice string
	Rate  float64
}

// EventType identifies an engine callback event.
type EventType string

// The closed set of engine event variants.
const (
	EventStarted  EventType = "started"
	EventEnded    EventType = "ended"
	EventPaused   EventType = "paused"
	EventResumed  EventType = "resumed"
	EventBoundary EventType = "boundary"
	EventError    EventType = "error"
)

// Event is a narration engine callback delivered over the engine's event
// channel to the controller's state loop.
type Event struct {
	Type      EventType
	Utterance uint64
	// WordStart and WordEnd are byte offsets of the word being spoken
	// within the utterance text. A boundary with WordEnd == 0 is the
	// synthetic reset marker: it clears the highlight without touching
	// playback state.
	WordStart int
	WordEnd   int
	Err       error
}

// Engine is the narration facility. Implementations deliver events for the
// current utterance on Events; Speak replaces any utterance in progress.
type Engine interface {
	// Voices enumerates the selectable voices.
	Voices() []Voice
	// Speak begins narrating the utterance asynchronously.
	Speak(u Utterance) error
	// Pause suspends the current utterance without losing position.
	Pause() error
	// Resume continues a paused utterance.
	Resume() error
	// Cancel discards the current utterance, if any. The engine reports
	// the interruption as an EventError carrying ErrCanceled.
	Cancel()
	// Events is the engine's callback stream.
	Events() <-chan Event
	// Close cancels any utterance and releases engine resources.
	Close() error
}

// DefaultVoice picks the engine's default voice, falling back to the first
// voice when none is flagged. Returns the empty string when the engine has
// no voices at all.
func DefaultVoice(voices []Voice) string {
	for _, v := range voices {
		if v.Default {
			return v.ID
		}
	}
	if len(voices) > 0 {
		return voices[0].ID
	}
	return ""
}
