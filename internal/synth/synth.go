// Package synth defines the interface for speech synthesis providers.
package synth

import "context"

// Provider turns assistant replies into speech. Speak cancels any
// in-flight utterance before starting a new one.
type Provider interface {
	Speak(ctx context.Context, text string) error
	Stop()
}

// Null is a no-op provider used when synthesis is disabled.
type Null struct{}

func (Null) Speak(ctx context.Context, text string) error { return nil }
func (Null) Stop()                                        {}
