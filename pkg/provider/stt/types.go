package stt

import (
	"errors"
	"time"
)

// ErrClipEmpty is returned by providers when asked to transcribe a clip with
// no PCM payload.
var ErrClipEmpty = errors.New("stt: clip contains no audio")

// Clip is one complete voice recording ready for transcription.
// The payload is raw 16-bit signed little-endian PCM.
type Clip struct {
	// PCM is the raw audio payload. Must be non-empty.
	PCM []byte

	// SampleRate is the audio sample rate in Hz. 16000 is the whisper-native
	// rate; providers resample or reject other rates per their own rules.
	SampleRate int

	// Channels is the number of interleaved channels. 1 = mono.
	Channels int

	// Language is an optional BCP-47 hint (e.g., "en", "de"). Empty lets the
	// engine auto-detect where supported.
	Language string
}

// Duration returns the play length of the clip, or 0 for invalid metadata.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	bytesPerSec := c.SampleRate * c.Channels * 2
	return time.Duration(len(c.PCM)) * time.Second / time.Duration(bytesPerSec)
}

// Result is the outcome of transcribing one clip.
type Result struct {
	// Text is the recognised speech, trimmed of leading and trailing
	// whitespace. Empty means the engine heard no speech.
	Text string

	// Language is the language the engine settled on, when reported.
	Language string

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// engine does not report confidence.
	Confidence float64
}
