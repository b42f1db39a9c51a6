// Package stt defines the interface for Speech-to-Text adapters.
package stt

import "context"

// Callback receives transcript results and session signals from the STT
// provider.
type Callback interface {
	// OnPartial is called with the current best guess while the user speaks.
	OnPartial(text string)

	// OnFinal is called when a final transcript is received.
	OnFinal(text string, confidence float64)

	// OnEnd is called once when the provider closes the session normally.
	OnEnd()

	// OnError is called when transcription fails. No further results follow.
	OnError(err error)
}

// Adapter defines the interface for STT providers.
type Adapter interface {
	// Start begins a streaming transcription session.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends audio bytes to the STT provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the session and releases resources.
	Close() error
}
