// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription engine (a local whisper.cpp server,
// the native whisper.cpp bindings, or a hosted API such as OpenAI) behind a
// single batch operation: hand over one complete voice clip, get back the
// recognised text. Speakcheck transcribes finished voice notes rather than
// live audio, so there is no streaming session to manage.
//
// Implementations must be safe for concurrent use; several learners may send
// voice notes at the same time.
package stt

import "context"

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts one complete voice clip into text.
	//
	// A successful call with an empty Result.Text means the engine found no
	// recognisable speech in the clip. An error means the engine could not
	// process the clip at all (network failure, bad audio, cancelled ctx).
	// Callers must keep these two outcomes apart: the first is a property of
	// the recording, the second of the pipeline.
	Transcribe(ctx context.Context, clip Clip) (Result, error)
}
