// Package openaistt provides an STT provider backed by the OpenAI audio
// transcription API (whisper-1 and the gpt-4o transcribe family).
//
// It is the hosted alternative to the local whisper.cpp providers: no model
// download, no CGO, at the cost of shipping learner audio to a third party.
package openaistt

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"speakcheck/pkg/audio"
	"speakcheck/pkg/provider/stt"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for Provider.
type Option func(*config)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// WithBaseURL overrides the default OpenAI API base URL. Useful for proxies
// and OpenAI-compatible transcription servers.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout. Defaults to the SDK default.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements stt.Provider using the OpenAI audio transcription API.
// Safe for concurrent use.
type Provider struct {
	client oai.Client
	model  string
}

// New constructs a Provider. model is the transcription model identifier
// (e.g., "whisper-1", "gpt-4o-mini-transcribe").
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openaistt: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openaistt: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Transcribe implements stt.Provider. The clip is wrapped in a WAV container
// and uploaded to the transcription endpoint.
func (p *Provider) Transcribe(ctx context.Context, clip stt.Clip) (stt.Result, error) {
	if len(clip.PCM) == 0 {
		return stt.Result{}, stt.ErrClipEmpty
	}

	sr := clip.SampleRate
	if sr <= 0 {
		sr = 16000
	}
	ch := clip.Channels
	if ch <= 0 {
		ch = 1
	}

	wav := audio.EncodeWAV(clip.PCM, sr, ch)

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
		Model: oai.AudioModel(p.model),
	}
	if clip.Language != "" {
		params.Language = param.NewOpt(clip.Language)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return stt.Result{}, fmt.Errorf("openaistt: transcription: %w", err)
	}

	return stt.Result{
		Text:     strings.TrimSpace(resp.Text),
		Language: clip.Language,
	}, nil
}
