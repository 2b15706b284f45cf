// Package correction implements the grammar-correction side channel: free-form
// answer text goes to an [llm.Provider], comes back as corrected text plus an
// itemised edit list, and is normalised into one of four outcomes the practice
// engine can act on without ever blocking question flow.
//
// Model output is treated as hostile input. Markdown fences are stripped,
// edits missing any of their three fields are dropped, edits whose original
// phrase cannot be located in the input are discarded as hallucinations, and
// a response that is not JSON at all is salvaged as a plain-text revision when
// it plausibly is one. Nothing in this package returns an error to the caller:
// a failed or unparseable correction degrades to [Unavailable].
package correction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"speakcheck/pkg/provider/llm"
)

const defaultTemperature = 0.1

// systemPrompt instructs the model to return a strict JSON envelope. The
// answer text itself travels as the user message.
const systemPrompt = `Analyze the following English text for grammar, style, spelling, and punctuation errors.
Respond ONLY with a valid JSON object containing two keys:
1. "corrections": An array of objects. Each object MUST have these three keys:
   - "original_phrase": The specific part of the original text with the error.
   - "corrected_phrase": The corrected version of that specific part.
   - "explanation": A brief, concise explanation (max 10 words) of why the correction was needed.
2. "corrected_text": The full, corrected version of the entire input text, incorporating all fixes.

If no errors are found, the "corrections" array MUST be empty, and "corrected_text" MUST be the original input text.
Do NOT include any text outside the single JSON object. Ensure the JSON is strictly valid.`

// Kind discriminates the possible results of a correction pass.
type Kind int

const (
	// Unchanged means the corrected text equals the input and no edits were
	// produced. Nothing to show the user.
	Unchanged Kind = iota

	// MinorRevision means the corrected text differs from the input but the
	// model produced no itemised edits.
	MinorRevision

	// Annotated means one or more itemised edits survived normalisation. The
	// outcome also carries the full corrected text.
	Annotated

	// Unavailable means the model call failed or its output was unusable.
	// Callers skip annotation for this turn and move on.
	Unavailable
)

// String returns the outcome kind name for logs.
func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case MinorRevision:
		return "minor_revision"
	case Annotated:
		return "annotated"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Edit is a single itemised correction: the offending phrase, its replacement,
// and a short reason.
type Edit struct {
	Original    string
	Corrected   string
	Explanation string
}

// Outcome is the normalised result of one correction pass.
type Outcome struct {
	Kind      Kind
	Corrected string
	Edits     []Edit
}

// llmEnvelope is the JSON shape the model is asked to produce.
type llmEnvelope struct {
	CorrectedText string `json:"corrected_text"`
	Corrections   []struct {
		OriginalPhrase  string `json:"original_phrase"`
		CorrectedPhrase string `json:"corrected_phrase"`
		Explanation     string `json:"explanation"`
	} `json:"corrections"`
}

// Option is a functional option for configuring a [Checker].
type Option func(*Checker)

// WithTemperature sets the sampling temperature. Lower values produce more
// deterministic corrections. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(c *Checker) {
		c.temperature = temp
	}
}

// WithLogger sets the logger used for degradation events. Default:
// [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(c *Checker) {
		c.log = log
	}
}

// Checker runs grammar correction against an [llm.Provider]. It is safe for
// concurrent use.
type Checker struct {
	llm         llm.Provider
	temperature float64
	log         *slog.Logger
}

// NewChecker returns a [Checker] backed by the given provider.
func NewChecker(provider llm.Provider, opts ...Option) *Checker {
	c := &Checker{
		llm:         provider,
		temperature: defaultTemperature,
		log:         slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Check corrects text and classifies the result. Blank input is [Unchanged]
// without a model call. Model failures and unparseable output degrade to
// [Unavailable]; Check never returns an error.
func (c *Checker) Check(ctx context.Context, text string) Outcome {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Outcome{Kind: Unchanged, Corrected: text}
	}

	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Temperature:  c.temperature,
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf("Input Text:\n```\n%s\n```", trimmed)},
		},
	}

	resp, err := c.llm.Complete(ctx, req)
	if err != nil {
		c.log.Warn("grammar check failed, skipping annotation", "error", err)
		return Outcome{Kind: Unavailable}
	}

	return c.normalize(trimmed, resp.Content)
}

// normalize turns raw model output into an [Outcome]. It is deliberately
// forgiving: a single bad edit entry is dropped, not the whole batch.
func (c *Checker) normalize(input, raw string) Outcome {
	cleaned := stripFences(raw)
	if cleaned == "" {
		c.log.Warn("grammar check returned empty response")
		return Outcome{Kind: Unavailable}
	}

	var env llmEnvelope
	if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
		// Not JSON. A response with no structural characters at all is
		// plausibly the corrected text itself.
		if !strings.ContainsAny(cleaned, "{[") {
			c.log.Warn("grammar check response was not JSON, salvaging as plain text")
			return classify(input, cleaned, nil)
		}
		c.log.Warn("grammar check response unparseable", "error", err)
		return Outcome{Kind: Unavailable}
	}

	corrected := strings.TrimSpace(env.CorrectedText)
	if corrected == "" {
		c.log.Warn("grammar check response missing corrected_text")
		return Outcome{Kind: Unavailable}
	}

	edits := make([]Edit, 0, len(env.Corrections))
	for _, e := range env.Corrections {
		orig := strings.TrimSpace(e.OriginalPhrase)
		corr := strings.TrimSpace(e.CorrectedPhrase)
		expl := strings.TrimSpace(e.Explanation)
		if orig == "" || corr == "" || expl == "" {
			continue
		}
		edits = append(edits, Edit{Original: orig, Corrected: corr, Explanation: expl})
	}

	edits = verifyEdits(input, edits)
	return classify(input, corrected, edits)
}

// classify maps corrected text and surviving edits onto an outcome kind.
// The unchanged comparison is trimmed and case-insensitive so that pure
// capitalisation echoes from the model do not show up as revisions.
func classify(input, corrected string, edits []Edit) Outcome {
	corrected = strings.TrimSpace(corrected)
	if len(edits) > 0 {
		return Outcome{Kind: Annotated, Corrected: corrected, Edits: edits}
	}
	if strings.EqualFold(strings.TrimSpace(input), corrected) {
		return Outcome{Kind: Unchanged, Corrected: corrected}
	}
	return Outcome{Kind: MinorRevision, Corrected: corrected}
}

// stripFences removes optional markdown code fences (```json ... ```) that
// some models wrap around JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
