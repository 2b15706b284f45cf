package whisper_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"speakcheck/pkg/provider/stt"
	"speakcheck/pkg/provider/stt/whisper"
)

// ---- helpers ----------------------------------------------------------------

// newMockServer creates a test server that responds to POST /inference with a
// JSON body containing the provided responseText. It increments *callCount on
// every matched request.
func newMockServer(t *testing.T, responseText string, callCount *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if callCount != nil {
			callCount.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": responseText})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// makeSpeechPCM generates a sine-wave PCM buffer at 440 Hz whose RMS is well
// above the silence threshold (defaultRMSThreshold = 300). The buffer contains
// `samples` 16-bit little-endian signed samples.
func makeSpeechPCM(samples int) []byte {
	const amplitude = 10_000.0 // RMS ≈ 7071, well above 300
	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

// makeSilencePCM generates a zero-valued PCM buffer (RMS = 0, below any
// threshold). The buffer contains `samples` 16-bit little-endian samples.
func makeSilencePCM(samples int) []byte {
	return make([]byte, samples*2)
}

// speechClip wraps PCM in a 16 kHz mono Clip.
func speechClip(pcm []byte) stt.Clip {
	return stt.Clip{PCM: pcm, SampleRate: 16000, Channels: 1, Language: "en"}
}

// ---- provider construction --------------------------------------------------

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	_, err := whisper.New("")
	if err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

func TestNew_ValidServerURL_ReturnsProvider(t *testing.T) {
	p, err := whisper.New("http://localhost:8080")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil Provider")
	}
}

func TestNew_WithOptions_DoesNotError(t *testing.T) {
	p, err := whisper.New("http://localhost:8080",
		whisper.WithModel("small"),
		whisper.WithLanguage("de"),
		whisper.WithRMSThreshold(150),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil Provider")
	}
}

// ---- Transcribe -------------------------------------------------------------

func TestTranscribe_SpeechClip_ReturnsServerText(t *testing.T) {
	var calls atomic.Int32
	srv := newMockServer(t, " I live near the coast. ", &calls)

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Transcribe(context.Background(), speechClip(makeSpeechPCM(16000)))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "I live near the coast." {
		t.Errorf("expected trimmed server text, got %q", res.Text)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 inference call, got %d", calls.Load())
	}
}

func TestTranscribe_SilentClip_SkipsServer(t *testing.T) {
	var calls atomic.Int32
	srv := newMockServer(t, "should never be returned", &calls)

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Transcribe(context.Background(), speechClip(makeSilencePCM(16000)))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "" {
		t.Errorf("expected empty text for silent clip, got %q", res.Text)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no inference calls for silent clip, got %d", calls.Load())
	}
}

func TestTranscribe_EmptyClip_ReturnsErrClipEmpty(t *testing.T) {
	p, err := whisper.New("http://localhost:8080")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Transcribe(context.Background(), stt.Clip{})
	if !errors.Is(err, stt.ErrClipEmpty) {
		t.Fatalf("expected ErrClipEmpty, got %v", err)
	}
}

func TestTranscribe_ServerError_ReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Transcribe(context.Background(), speechClip(makeSpeechPCM(16000)))
	if err == nil {
		t.Fatal("expected error from failing server, got nil")
	}
}

func TestTranscribe_ServerSilence_ReturnsEmptyText(t *testing.T) {
	// whisper-server reports no recognisable speech as an empty text field;
	// that must reach the caller as an empty Result, not an error.
	srv := newMockServer(t, "  ", nil)

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Transcribe(context.Background(), speechClip(makeSpeechPCM(16000)))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "" {
		t.Errorf("expected empty text, got %q", res.Text)
	}
}

func TestTranscribe_CancelledContext_ReturnsError(t *testing.T) {
	srv := newMockServer(t, "hello", nil)

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Transcribe(ctx, speechClip(makeSpeechPCM(16000)))
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}

func TestTranscribe_SendsLanguageField(t *testing.T) {
	var gotLang atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err == nil {
			gotLang.Store(r.FormValue("language"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	t.Cleanup(srv.Close)

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	clip := speechClip(makeSpeechPCM(16000))
	clip.Language = "de"
	if _, err := p.Transcribe(context.Background(), clip); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got, _ := gotLang.Load().(string); got != "de" {
		t.Errorf("expected language field de, got %q", got)
	}
}

func TestTranscribe_ZeroThreshold_DisablesPreCheck(t *testing.T) {
	var calls atomic.Int32
	srv := newMockServer(t, "", &calls)

	p, err := whisper.New(srv.URL, whisper.WithRMSThreshold(0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), speechClip(makeSilencePCM(16000))); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected the silent clip to reach the server, got %d calls", calls.Load())
	}
}

// ---- Clip -------------------------------------------------------------------

func TestClipDuration(t *testing.T) {
	clip := speechClip(makeSpeechPCM(16000)) // exactly 1 s at 16 kHz mono
	if d := clip.Duration(); d.Seconds() != 1.0 {
		t.Errorf("expected 1s duration, got %v", d)
	}
	if d := (stt.Clip{PCM: []byte{0, 0}}).Duration(); d != 0 {
		t.Errorf("expected 0 duration for missing metadata, got %v", d)
	}
}
