package speech

import (
	"sync"
	"time"
	"unicode"
)

// DefaultWPM is the narration pacing when no rate is configured. 160 words
// per minute sits in the comfortable read-aloud range.
const DefaultWPM = 160

// wordSpan is a word's byte range within an utterance text.
type wordSpan struct {
	start int
	end   int
}

// wordSpans scans text for whitespace-separated words and returns their byte
// offsets. Offsets index the original text, so a highlight consumer can slice
// the paragraph directly.
func wordSpans(text string) []wordSpan {
	var spans []wordSpan
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, wordSpan{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, wordSpan{start: start, end: len(text)})
	}
	return spans
}

// pacedVoices is the fixed voice roster of the paced engine. The multiplier
// shades the base words-per-minute the way different narrators pace a read.
var pacedVoices = []struct {
	voice Voice
	mult  float64
}{
	{Voice{ID: "calm", Name: "Calm", Language: "en-US"}, 0.9},
	{Voice{ID: "narrator", Name: "Narrator", Language: "en-US", Default: true}, 1.0},
	{Voice{ID: "brisk", Name: "Brisk", Language: "en-US"}, 1.15},
}

type pacedControl int

const (
	pacedPause pacedControl = iota
	pacedResume
)

type pacedRun struct {
	ctrl   chan pacedControl
	cancel chan struct{}
	once   sync.Once
}

func (r *pacedRun) stop() {
	r.once.Do(func() { close(r.cancel) })
}

// PacedEngine is a synthetic narration engine: it "speaks" an utterance by
// emitting one word boundary per word on a timer derived from a
// words-per-minute pace, so the reader's highlight sweep and the playback
// state machine behave exactly as they would over a real speech facility.
type PacedEngine struct {
	wpm    int
	events chan Event

	mu  sync.Mutex
	cur *pacedRun
}

// NewPacedEngine creates a paced engine. wpm <= 0 selects DefaultWPM.
func NewPacedEngine(wpm int) *PacedEngine {
	if wpm <= 0 {
		wpm = DefaultWPM
	}
	return &PacedEngine{
		wpm:    wpm,
		events: make(chan Event, 64),
	}
}

// Voices implements Engine.
func (e *PacedEngine) Voices() []Voice {
	out := make([]Voice, len(pacedVoices))
	for i, pv := range pacedVoices {
		out[i] = pv.voice
	}
	return out
}

func (e *PacedEngine) voiceMultiplier(id string) float64 {
	for _, pv := range pacedVoices {
		if pv.voice.ID == id {
			return pv.mult
		}
	}
	return 1.0
}

// Speak implements Engine. Any utterance in progress is cancelled first.
func (e *PacedEngine) Speak(u Utterance) error {
	rate := u.Rate
	if rate <= 0 {
		rate = 1.0
	}
	wpm := float64(e.wpm) * e.voiceMultiplier(u.Voice) * rate
	delay := time.Duration(float64(time.Minute) / wpm)

	run := &pacedRun{
		ctrl:   make(chan pacedControl),
		cancel: make(chan struct{}),
	}

	e.mu.Lock()
	if e.cur != nil {
		e.cur.stop()
	}
	e.cur = run
	e.mu.Unlock()

	go e.narrate(run, u, delay)
	return nil
}

// narrate walks the utterance word by word, sleeping the pace delay between
// boundaries. Runs on its own goroutine; one per utterance. The run is
// stopped on the way out so a Pause or Resume arriving after the utterance
// finished never blocks on a goroutine that no longer exists.
func (e *PacedEngine) narrate(run *pacedRun, u Utterance, delay time.Duration) {
	defer run.stop()

	if !e.emit(run, Event{Type: EventStarted, Utterance: u.ID}) {
		e.emitCanceled(u)
		return
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}

	for _, span := range wordSpans(u.Text) {
		if !e.emit(run, Event{
			Type:      EventBoundary,
			Utterance: u.ID,
			WordStart: span.start,
			WordEnd:   span.end,
		}) {
			e.emitCanceled(u)
			return
		}

		timer.Reset(delay)
		if !e.wait(run, u, timer) {
			e.emitCanceled(u)
			return
		}
	}

	// Reset marker so the last word's highlight does not linger.
	e.emit(run, Event{Type: EventBoundary, Utterance: u.ID, WordStart: 0, WordEnd: 0})
	e.emit(run, Event{Type: EventEnded, Utterance: u.ID})
}

// wait blocks for the word delay, honouring pause/resume and cancellation.
// Returns false when the run was cancelled.
func (e *PacedEngine) wait(run *pacedRun, u Utterance, timer *time.Timer) bool {
	paused := false
	for {
		if paused {
			select {
			case <-run.cancel:
				return false
			case ctl := <-run.ctrl:
				if ctl == pacedResume {
					paused = false
					e.emit(run, Event{Type: EventResumed, Utterance: u.ID})
					timer.Reset(0)
				}
			}
			continue
		}
		select {
		case <-timer.C:
			return true
		case <-run.cancel:
			return false
		case ctl := <-run.ctrl:
			if ctl == pacedPause {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				paused = true
				e.emit(run, Event{Type: EventPaused, Utterance: u.ID})
			}
		}
	}
}

// emit delivers an event unless the run has been cancelled. The controller
// drains events continuously, but cancellation must never deadlock a
// narration goroutine stuck on a full channel.
func (e *PacedEngine) emit(run *pacedRun, ev Event) bool {
	select {
	case <-run.cancel:
		return false
	default:
	}
	select {
	case e.events <- ev:
		return true
	case <-run.cancel:
		return false
	}
}

// emitCanceled reports an interrupted utterance. Best-effort: a cancelled
// run must never block on a full channel.
func (e *PacedEngine) emitCanceled(u Utterance) {
	select {
	case e.events <- Event{Type: EventError, Utterance: u.ID, Err: ErrCanceled}:
	default:
	}
}

// Pause implements Engine.
func (e *PacedEngine) Pause() error { return e.control(pacedPause) }

// Resume implements Engine.
func (e *PacedEngine) Resume() error { return e.control(pacedResume) }

func (e *PacedEngine) control(ctl pacedControl) error {
	e.mu.Lock()
	run := e.cur
	e.mu.Unlock()
	if run == nil {
		return nil
	}
	select {
	case run.ctrl <- ctl:
	case <-run.cancel:
	}
	return nil
}

// Cancel implements Engine.
func (e *PacedEngine) Cancel() {
	e.mu.Lock()
	run := e.cur
	e.cur = nil
	e.mu.Unlock()
	if run != nil {
		run.stop()
	}
}

// Events implements Engine.
func (e *PacedEngine) Events() <-chan Event { return e.events }

// Close implements Engine.
func (e *PacedEngine) Close() error {
	e.Cancel()
	return nil
}
