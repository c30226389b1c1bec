package speech

import (
	"errors"
	"log/slog"
	"sync"
)

// State is the playback state machine's position.
type State string

// Playback states.
const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// HighlightRange is the byte span of the word currently being spoken within
// the active paragraph.
type HighlightRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Snapshot is a consistent view of the controller's state, safe to hand to
// API handlers and event streams.
type Snapshot struct {
	State           State          `json:"state"`
	ActiveParagraph *int           `json:"active_paragraph"`
	Highlight       HighlightRange `json:"highlight"`
	Voice           string         `json:"voice"`
	Rate            float64        `json:"rate"`
	ParagraphCount  int            `json:"paragraph_count"`
}

// Notifier receives a snapshot after every observable state or highlight
// change. Called from the controller's state goroutine; implementations
// must not call back into the controller synchronously.
type Notifier func(Snapshot)

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdPause
	cmdStop
	cmdSelect
	cmdSetParagraphs
	cmdSetVoice
	cmdSetRate
	cmdSnapshot
)

type command struct {
	kind       commandKind
	index      int
	paragraphs []string
	voice      string
	rate       float64
	reply      chan Snapshot
}

// Controller drives sequential narration of a page's paragraphs. All state
// lives in a single goroutine that consumes commands and engine events, so
// no two narrations can ever be issued concurrently: a new selection always
// cancels the running one before starting.
type Controller struct {
	engine Engine
	logger *slog.Logger
	notify Notifier

	cmds chan command

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

// NewController creates a controller owning the given engine and starts its
// state loop. notify may be nil.
func NewController(engine Engine, logger *slog.Logger, notify Notifier) *Controller {
	c := &Controller{
		engine:  engine,
		logger:  logger,
		notify:  notify,
		cmds:    make(chan command),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Play starts narration from the last active paragraph (or the first), or
// resumes a paused utterance. Playing is idempotent.
func (c *Controller) Play() { c.send(command{kind: cmdPlay}) }

// Pause suspends the current utterance without discarding position.
func (c *Controller) Pause() { c.send(command{kind: cmdPause}) }

// Stop cancels narration from any state and clears the active paragraph and
// highlight.
func (c *Controller) Stop() { c.send(command{kind: cmdStop}) }

// SelectParagraph cancels any narration and starts playing paragraph i.
// Out-of-range indices are ignored.
func (c *Controller) SelectParagraph(i int) { c.send(command{kind: cmdSelect, index: i}) }

// SetParagraphs replaces the playable paragraphs, forcing a stop first.
// Called on page navigation so stale paragraphs are never narrated.
func (c *Controller) SetParagraphs(paragraphs []string) {
	c.send(command{kind: cmdSetParagraphs, paragraphs: paragraphs})
}

// SetVoice selects the voice for subsequent utterances. The utterance in
// progress is unaffected.
func (c *Controller) SetVoice(voice string) { c.send(command{kind: cmdSetVoice, voice: voice}) }

// SetRate sets the rate multiplier for subsequent utterances.
func (c *Controller) SetRate(rate float64) { c.send(command{kind: cmdSetRate, rate: rate}) }

// Snapshot returns the current playback state.
func (c *Controller) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	select {
	case c.cmds <- command{kind: cmdSnapshot, reply: reply}:
		return <-reply
	case <-c.done:
		return Snapshot{State: StateStopped, Highlight: HighlightRange{}, Rate: 1}
	}
}

// Voices enumerates the engine's voices.
func (c *Controller) Voices() []Voice {
	return c.engine.Voices()
}

// Close stops narration and shuts down the state loop. The engine is
// cancelled but not closed; the engine outlives its reader sessions.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		<-c.stopped
		c.engine.Cancel()
	})
}

func (c *Controller) send(cmd command) {
	select {
	case c.cmds <- cmd:
	case <-c.done:
	}
}

// loop owns all mutable playback state.
func (c *Controller) loop() {
	defer close(c.stopped)

	var (
		state      = StateStopped
		paragraphs []string
		active     = -1 // last active paragraph, kept across stop for resume-from
		playing    = -1 // paragraph currently narrated, -1 when stopped
		highlight  HighlightRange
		voice      string
		rate       = 1.0
		utterance  uint64 // id of the utterance we currently care about
	)

	if v := DefaultVoice(c.engine.Voices()); v != "" {
		voice = v
	}

	snapshot := func() Snapshot {
		s := Snapshot{
			State:          state,
			Highlight:      highlight,
			Voice:          voice,
			Rate:           rate,
			ParagraphCount: len(paragraphs),
		}
		if playing >= 0 {
			idx := playing
			s.ActiveParagraph = &idx
		}
		return s
	}

	publish := func() {
		if c.notify != nil {
			c.notify(snapshot())
		}
	}

	// startUtterance cancels whatever the engine is doing and begins
	// narrating paragraph i with the current settings.
	startUtterance := func(i int) {
		c.engine.Cancel()
		utterance++
		highlight = HighlightRange{}
		playing = i
		active = i
		state = StatePlaying
		u := Utterance{ID: utterance, Text: paragraphs[i], Voice: voice, Rate: rate}
		if err := c.engine.Speak(u); err != nil {
			// Narration is best-effort: log and fall back to idle.
			if c.logger != nil {
				c.logger.Error("narration start failed", "error", err, "paragraph", i)
			}
			state = StateStopped
			playing = -1
			highlight = HighlightRange{}
		}
	}

	stopAll := func() {
		c.engine.Cancel()
		utterance++
		state = StateStopped
		playing = -1
		active = -1
		highlight = HighlightRange{}
	}

	for {
		select {
		case <-c.done:
			return

		case cmd := <-c.cmds:
			switch cmd.kind {
			case cmdPlay:
				switch state {
				case StateStopped:
					if len(paragraphs) == 0 {
						continue
					}
					start := active
					if start < 0 || start >= len(paragraphs) {
						start = 0
					}
					startUtterance(start)
				case StatePaused:
					if err := c.engine.Resume(); err != nil && c.logger != nil {
						c.logger.Warn("narration resume failed", "error", err)
					}
					state = StatePlaying
				case StatePlaying:
					// Idempotent; the UI routes the toggle to pause.
				}
				publish()

			case cmdPause:
				if state == StatePlaying {
					if err := c.engine.Pause(); err != nil && c.logger != nil {
						c.logger.Warn("narration pause failed", "error", err)
					}
					state = StatePaused
					publish()
				}

			case cmdStop:
				stopAll()
				publish()

			case cmdSelect:
				if cmd.index < 0 || cmd.index >= len(paragraphs) {
					continue
				}
				startUtterance(cmd.index)
				publish()

			case cmdSetParagraphs:
				stopAll()
				paragraphs = cmd.paragraphs
				publish()

			case cmdSetVoice:
				voice = cmd.voice

			case cmdSetRate:
				if cmd.rate > 0 {
					rate = cmd.rate
				}

			case cmdSnapshot:
				cmd.reply <- snapshot()
			}

		case ev, ok := <-c.engine.Events():
			if !ok {
				return
			}
			if ev.Utterance != utterance {
				// Stale event from a superseded utterance.
				continue
			}
			switch ev.Type {
			case EventBoundary:
				if ev.WordEnd <= 0 {
					// Synthetic reset marker.
					highlight = HighlightRange{}
				} else {
					highlight = HighlightRange{Start: ev.WordStart, End: ev.WordEnd}
				}
				publish()

			case EventEnded:
				if state != StatePlaying {
					continue
				}
				next := playing + 1
				if next < len(paragraphs) {
					startUtterance(next)
				} else {
					// End of page; no automatic page turn.
					state = StateStopped
					playing = -1
					active = -1
					highlight = HighlightRange{}
				}
				publish()

			case EventError:
				if errors.Is(ev.Err, ErrCanceled) {
					// Expected when we cancel; not a failure.
					continue
				}
				if c.logger != nil {
					c.logger.Error("narration engine error", "error", ev.Err)
				}
				state = StateStopped
				playing = -1
				highlight = HighlightRange{}
				publish()

			case EventStarted, EventPaused, EventResumed:
				// State already tracked from the command side.
			}
		}
	}
}
