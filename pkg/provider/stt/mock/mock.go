// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider to verify which clips were submitted for transcription and to
// feed controlled recognition results without a live engine.
//
// Example:
//
//	p := &mock.Provider{
//	    TranscribeResult: stt.Result{Text: "I live in a small town."},
//	}
//	res, err := p.Transcribe(ctx, clip)
package mock

import (
	"context"
	"sync"

	"speakcheck/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Clip is the clip passed to Transcribe.
	Clip stt.Clip
}

// Provider is a mock implementation of stt.Provider.
// Zero values cause Transcribe to return an empty Result and nil error, which
// callers interpret as "no speech heard".
type Provider struct {
	mu sync.Mutex

	// TranscribeResult is returned by Transcribe when TranscribeQueue is empty.
	TranscribeResult stt.Result

	// TranscribeQueue, when non-empty, is consumed one result per call before
	// TranscribeResult is consulted.
	TranscribeQueue []stt.Result

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// TranscribeCalls records every call to Transcribe in order.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns the configured result and error.
func (p *Provider) Transcribe(ctx context.Context, clip stt.Clip) (stt.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Clip: clip})
	if p.TranscribeErr != nil {
		return stt.Result{}, p.TranscribeErr
	}
	if len(p.TranscribeQueue) > 0 {
		res := p.TranscribeQueue[0]
		p.TranscribeQueue = p.TranscribeQueue[1:]
		return res, nil
	}
	return p.TranscribeResult, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
