// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"speakcheck/pkg/provider/stt"
)

// Compile-time assertion that NativeProvider satisfies stt.Provider.
var _ stt.Provider = (*NativeProvider)(nil)

// NativeProvider implements stt.Provider using whisper.cpp Go bindings
// (CGO), eliminating HTTP overhead entirely. The model is loaded once at
// startup and shared across all Transcribe calls.
type NativeProvider struct {
	model        whisperlib.Model
	language     string
	rmsThreshold float64

	// A whisper context is not thread-safe, so inference is serialised.
	// Concurrent Transcribe calls queue here.
	mu sync.Mutex
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// WithNativeRMSThreshold overrides the silence pre-check threshold. Zero
// disables the pre-check.
func WithNativeRMSThreshold(threshold float64) NativeOption {
	return func(p *NativeProvider) { p.rmsThreshold = threshold }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. The model is loaded once and shared across all calls.
// The caller must call Close when the provider is no longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &NativeProvider{
		model:        model,
		language:     defaultLanguage,
		rmsThreshold: defaultRMSThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe implements stt.Provider. The clip is down-mixed to mono float32
// and run through a fresh whisper context.
func (p *NativeProvider) Transcribe(ctx context.Context, clip stt.Clip) (stt.Result, error) {
	if len(clip.PCM) == 0 {
		return stt.Result{}, stt.ErrClipEmpty
	}
	if err := ctx.Err(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	if p.rmsThreshold > 0 && computeRMS(clip.PCM) < p.rmsThreshold {
		return stt.Result{}, nil
	}

	lang := clip.Language
	if lang == "" {
		lang = p.language
	}
	ch := clip.Channels
	if ch <= 0 {
		ch = 1
	}

	text, err := p.infer(clip.PCM, ch, lang)
	if err != nil {
		return stt.Result{}, err
	}
	return stt.Result{Text: strings.TrimSpace(text), Language: lang}, nil
}

// infer converts the PCM audio to float32, runs whisper.cpp inference using a
// fresh context, and returns the concatenated segment text.
func (p *NativeProvider) infer(pcm []byte, channels int, lang string) (string, error) {
	samples := pcmToFloat32Mono(pcm, channels)

	p.mu.Lock()
	defer p.mu.Unlock()

	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}
