package bot

import (
	"context"
	"log/slog"
	"time"

	"speakcheck/internal/practice"
)

// chunkPause is the delay between consecutive chunks of one split message so
// the transport delivers them in order without tripping rate limits.
const chunkPause = 250 * time.Millisecond

// Renderer delivers engine directives through a [Messenger]. It owns the
// transport-facing guarantees: long messages are split on newline boundaries
// with pacing between chunks, a preferred edit that fails falls back to
// exactly one send, every triggering action is acknowledged exactly once, and
// delivery failures are logged here rather than surfacing into engine state.
type Renderer struct {
	m    Messenger
	log  *slog.Logger
	pace time.Duration
}

// RendererOption customises a Renderer.
type RendererOption func(*Renderer)

// WithRendererLogger sets the logger for delivery failures.
func WithRendererLogger(log *slog.Logger) RendererOption {
	return func(r *Renderer) { r.log = log }
}

// WithPace overrides the inter-chunk delay. Tests use 0.
func WithPace(d time.Duration) RendererOption {
	return func(r *Renderer) { r.pace = d }
}

// NewRenderer creates a Renderer delivering through m.
func NewRenderer(m Messenger, opts ...RendererOption) *Renderer {
	r := &Renderer{
		m:    m,
		log:  slog.Default(),
		pace: chunkPause,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Deliver renders a directive produced by a button press. actionRef
// identifies the press for acknowledgement; editRef is the message carrying
// the pressed button, used for messages that prefer an in-place edit. The
// acknowledgement happens exactly once, after the messages, with the
// directive's alert.
func (r *Renderer) Deliver(ctx context.Context, chatID string, d practice.Directive, actionRef, editRef string) {
	defer func() {
		if err := r.m.AcknowledgeAction(ctx, actionRef, d.Alert); err != nil {
			r.log.Warn("bot: acknowledge failed", "chat", chatID, "err", err)
		}
	}()
	r.deliver(ctx, chatID, d.Messages, editRef)
}

// Send renders a directive with no triggering action, such as an answer
// follow-up or a plain chat reply.
func (r *Renderer) Send(ctx context.Context, chatID string, d practice.Directive) {
	r.deliver(ctx, chatID, d.Messages, "")
}

func (r *Renderer) deliver(ctx context.Context, chatID string, msgs []practice.Message, editRef string) {
	for _, msg := range msgs {
		chunks := splitMessage(msg.Text, messageLimit)
		for ci, chunk := range chunks {
			// The keyboard belongs on the final chunk only.
			var kb practice.Keyboard
			if ci == len(chunks)-1 {
				kb = msg.Keyboard
			}

			if ci > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(r.pace):
				}
			}

			if ci == 0 && msg.PreferEdit && editRef != "" {
				if err := r.m.EditMessage(ctx, chatID, editRef, chunk, kb); err == nil {
					continue
				} else {
					r.log.Warn("bot: edit failed, sending instead", "chat", chatID, "err", err)
				}
			}

			if _, err := r.m.SendMessage(ctx, chatID, chunk, kb); err != nil {
				r.log.Warn("bot: send failed", "chat", chatID, "err", err)
			}
		}
		// Only the first message of a directive may edit in place.
		editRef = ""
	}
}
