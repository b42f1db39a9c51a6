// Package mock provides a mock STT adapter for testing without cloud credentials.
// It simulates Spanish dictation: progressive partial transcripts, exactly one
// final transcript, then the end of the session.
package mock

import (
	"context"
	"sync"
	"time"

	"voice-appointment-service/internal/service/stt"
)

// SimulatedUtterance represents a mock utterance with progressive transcripts.
type SimulatedUtterance struct {
	Partials   []string // Progressive partial transcripts
	Final      string   // Final transcript text
	Confidence float64  // Confidence score for final
}

// DefaultUtterances provides sample dictations for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Partials:   []string{"crear cita", "crear cita mañana", "crear cita mañana a las tres"},
		Final:      "crear cita mañana a las 3pm con maría pérez",
		Confidence: 0.94,
	},
	{
		Partials:   []string{"cita con juan", "cita con juan a las nueve", "cita con juan a las nueve en la sede norte"},
		Final:      "cita con juan a las 9 en la sede norte por 45 minutos",
		Confidence: 0.91,
	},
	{
		Partials:   []string{"limpieza dental", "limpieza dental para ana martínez", "limpieza dental para ana martínez el lunes"},
		Final:      "limpieza dental para ana martínez el lunes a las 10 de la mañana en el consultorio principal por media hora",
		Confidence: 0.89,
	},
	{
		Partials:   []string{"control", "control con carlos sánchez"},
		Final:      "control con carlos sánchez el 15 de marzo a las 16:30",
		Confidence: 0.97,
	},
	{
		Partials:   []string{"reunión"},
		Final:      "reunión con pedro pasado mañana a las cinco de la tarde por una hora",
		Confidence: 0.93,
	},
}

// DefaultDelay is the simulated recognition latency per result.
const DefaultDelay = 50 * time.Millisecond

// Adapter implements stt.Adapter with mock responses. Results are delivered
// in order from a single goroutine after a simulated delay:
//   - one partial per audio frame
//   - exactly one final once the partials run out, followed by OnEnd
//   - Close before that delivers the final and OnEnd immediately
type Adapter struct {
	cb           stt.Callback
	mu           sync.Mutex
	utterance    SimulatedUtterance
	delay        time.Duration
	partialIndex int  // Next partial to send
	finalSent    bool // Ensures only one final per session
	closed       bool
	queue        chan func(stt.Callback)
}

// utteranceCounter tracks which utterance to use next (cycles through defaults)
var (
	utteranceCounter int
	counterMu        sync.Mutex
)

// New creates a mock adapter cycling through DefaultUtterances.
func New() *Adapter {
	counterMu.Lock()
	idx := utteranceCounter % len(DefaultUtterances)
	utteranceCounter++
	counterMu.Unlock()

	return NewWithUtterance(DefaultUtterances[idx], DefaultDelay)
}

// NewWithUtterance creates a mock adapter that dictates u.
func NewWithUtterance(u SimulatedUtterance, delay time.Duration) *Adapter {
	return &Adapter{utterance: u, delay: delay}
}

// Utterance returns the simulated dictation.
func (a *Adapter) Utterance() SimulatedUtterance {
	return a.utterance
}

// Start begins a mock transcription session.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
	a.queue = make(chan func(stt.Callback), len(a.utterance.Partials)+2)
	go a.deliver(cb, a.queue)
	return nil
}

func (a *Adapter) deliver(cb stt.Callback, queue <-chan func(stt.Callback)) {
	for ev := range queue {
		time.Sleep(a.delay)
		ev(cb)
	}
}

// SendAudio simulates receiving audio and triggers progressive partial
// transcripts. When all partials are sent it simulates end of speech.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil {
		return nil
	}

	if a.partialIndex < len(a.utterance.Partials) {
		text := a.utterance.Partials[a.partialIndex]
		a.partialIndex++
		a.queue <- func(cb stt.Callback) { cb.OnPartial(text) }
		return nil
	}
	if !a.finalSent {
		a.enqueueFinal()
	}
	return nil
}

func (a *Adapter) enqueueFinal() {
	a.finalSent = true
	utt := a.utterance
	a.queue <- func(cb stt.Callback) {
		cb.OnFinal(utt.Final, utt.Confidence)
		cb.OnEnd()
	}
}

// Close ends the mock session. If the final was not sent yet it is sent now.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	if a.queue == nil {
		return nil
	}
	if !a.finalSent {
		a.enqueueFinal()
	}
	close(a.queue)
	return nil
}
