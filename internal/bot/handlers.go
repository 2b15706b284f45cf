package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"speakcheck/internal/correction"
	"speakcheck/internal/observe"
	"speakcheck/internal/practice"
	"speakcheck/pkg/audio"
	"speakcheck/pkg/provider/stt"
)

const (
	// maxVoiceNoteBytes caps voice note downloads at 10 MB.
	maxVoiceNoteBytes = 10 << 20

	// handlerTimeout bounds the work done for a single inbound event,
	// transcription included.
	handlerTimeout = 2 * time.Minute

	// opusContainerRate is the sample rate of decoded OGG/Opus audio.
	opusContainerRate = 48000

	// speechSampleRate is the mono rate the transcription clip is built at.
	speechSampleRate = 16000
)

// User-facing notices for the non-practice flows.
const (
	msgVoiceTooLarge    = "File is too large. Maximum size is 10 MB."
	msgVoiceUnsupported = "Voice messages are not supported right now. Please type your message instead."
	msgVoiceProcessing  = "Processing your voice message..."
	msgVoiceNoSpeech    = "Could not recognize speech in the voice message. Please try speaking clearly."
	msgVoiceFailed      = "Sorry, an error occurred while processing your voice message. Please try again."
	msgCheckUnavailable = "Sorry, an error occurred while checking grammar. Please try again later."
)

// handleInteraction routes slash commands and button presses.
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name == practiceCommandName {
			b.handlePracticeCommand(ctx, s, i)
		}
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, i)
	}
}

// handlePracticeCommand starts a practice session. The part keyboard doubles
// as the interaction response.
func (b *Bot) handlePracticeCommand(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	d := b.engine.Start(i.ChannelID)
	if len(d.Messages) == 0 {
		return
	}

	first := d.Messages[0]
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    first.Text,
			Components: keyboardComponents(first.Keyboard),
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		b.log.Warn("bot: practice command response failed", "chat", i.ChannelID, "err", err)
		return
	}

	if len(d.Messages) > 1 {
		b.renderer.deliver(ctx, i.ChannelID, d.Messages[1:], "")
	}
}

// handleComponent decodes the button's custom ID and runs it through the
// engine. The renderer acknowledges the press exactly once.
func (b *Bot) handleComponent(ctx context.Context, i *discordgo.InteractionCreate) {
	chatID := i.ChannelID

	// Keyboard page controls are transport-internal and never reach the
	// engine.
	if delta, ok := pageFlip(i.MessageComponentData().CustomID); ok {
		if err := b.dm.flipPage(ctx, i.Interaction, delta); err != nil {
			b.log.Warn("bot: keyboard page flip failed", "chat", chatID, "err", err)
		}
		return
	}

	ref := b.dm.track(i.Interaction)

	editRef := ""
	if i.Message != nil {
		editRef = i.Message.ID
	}

	action := practice.ParseAction(i.MessageComponentData().CustomID)
	d := b.engine.HandleAction(ctx, chatID, action)
	b.renderer.Deliver(ctx, chatID, d, ref, editRef)
}

// handleMessage routes inbound chat messages: voice notes go through
// transcription first, then both paths join handleText.
func (b *Bot) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if att := voiceAttachment(m.Message); att != nil {
		b.handleVoiceNote(ctx, m.ChannelID, att)
		return
	}

	text := strings.TrimSpace(m.Content)
	if text == "" {
		return
	}
	b.handleText(ctx, m.ChannelID, text)
}

// handleText feeds the utterance to the engine when a practice session is
// waiting for an answer; otherwise it runs the plain grammar-check reply.
func (b *Bot) handleText(ctx context.Context, chatID, text string) {
	part := b.engine.Store().Snapshot(chatID).Part

	if d, ok := b.engine.HandleAnswer(ctx, chatID, text); ok {
		b.metrics.RecordAnswer(ctx, part.String())
		b.renderer.Send(ctx, chatID, d)
		return
	}

	b.replyWithCorrection(ctx, chatID, text)
}

// replyWithCorrection runs the grammar check for a message outside any
// practice flow and replies in kind.
func (b *Bot) replyWithCorrection(ctx context.Context, chatID, text string) {
	start := time.Now()
	out := b.checker.Check(ctx, text)
	b.metrics.RecordCorrection(ctx, time.Since(start).Seconds(), out.Kind.String())

	var d practice.Directive
	switch out.Kind {
	case correction.Annotated:
		id := b.records.Put(chatID, out.Edits)
		d.Messages = append(d.Messages, practice.Message{
			Text: fmt.Sprintf("Your message:\n%q\n\nImproved version:\n%q", text, out.Corrected),
			Keyboard: practice.Keyboard{{
				{Label: "Show Corrections", Action: practice.ShowCorrectionsAction(id)},
			}},
		})
	case correction.MinorRevision:
		d.Messages = append(d.Messages, practice.Message{
			Text: fmt.Sprintf("Your message:\n%q\n\nImproved version (minor changes):\n%q", text, out.Corrected),
		})
	case correction.Unchanged:
		d.Messages = append(d.Messages, practice.Message{
			Text: fmt.Sprintf("Your message seems correct:\n%q", text),
		})
	case correction.Unavailable:
		d.Messages = append(d.Messages, practice.Message{Text: msgCheckUnavailable})
	}

	b.renderer.Send(ctx, chatID, d)
}

// handleVoiceNote downloads, decodes, and transcribes a voice attachment. A
// transient processing notice is posted up front and removed afterwards. The
// two failure shapes stay distinct: a pipeline error and a clip with no
// recognisable speech get different replies.
func (b *Bot) handleVoiceNote(ctx context.Context, chatID string, att *discordgo.MessageAttachment) {
	ctx, span := observe.StartSpan(ctx, "voice_note")
	defer span.End()
	log := observe.Logger(ctx)

	if b.stt == nil {
		b.metrics.RecordVoiceNote(ctx, "rejected")
		b.notify(ctx, chatID, msgVoiceUnsupported)
		return
	}
	if att.Size > maxVoiceNoteBytes {
		b.metrics.RecordVoiceNote(ctx, "too_large")
		b.notify(ctx, chatID, msgVoiceTooLarge)
		return
	}

	noticeRef, err := b.messenger.SendMessage(ctx, chatID, msgVoiceProcessing, nil)
	if err != nil {
		log.Warn("bot: processing notice failed", "chat", chatID, "err", err)
	} else {
		defer func() {
			if err := b.messenger.DeleteMessage(ctx, chatID, noticeRef); err != nil {
				log.Warn("bot: delete processing notice failed", "chat", chatID, "err", err)
			}
		}()
	}

	text, err := b.transcribeAttachment(ctx, att)
	switch {
	case err != nil:
		log.Warn("bot: voice note failed", "chat", chatID, "err", err)
		b.metrics.RecordVoiceNote(ctx, "error")
		b.notify(ctx, chatID, msgVoiceFailed)
	case text == "":
		b.metrics.RecordVoiceNote(ctx, "no_speech")
		b.notify(ctx, chatID, msgVoiceNoSpeech)
	default:
		b.metrics.RecordVoiceNote(ctx, "ok")
		b.handleText(ctx, chatID, text)
	}
}

// transcribeAttachment turns a voice attachment into text. An empty string
// with a nil error means the engine heard no speech.
func (b *Bot) transcribeAttachment(ctx context.Context, att *discordgo.MessageAttachment) (string, error) {
	data, err := b.download(ctx, att.URL)
	if err != nil {
		return "", err
	}

	pcm, channels, err := b.decodeVoice(data)
	if err != nil {
		return "", err
	}
	mono := audio.ToSpeechFormat(pcm, opusContainerRate, channels)

	clip := stt.Clip{
		PCM:        mono,
		SampleRate: speechSampleRate,
		Channels:   1,
	}

	start := time.Now()
	res, err := b.stt.Transcribe(ctx, clip)
	status := "ok"
	if err != nil {
		status = "error"
	}
	b.metrics.RecordTranscription(ctx, time.Since(start).Seconds(), status)
	if err != nil {
		return "", fmt.Errorf("bot: transcribe voice note: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}

// download fetches an attachment, rejecting bodies over the voice note cap.
func (b *Bot) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("bot: build download request: %w", err)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bot: download voice note: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bot: download voice note: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVoiceNoteBytes+1))
	if err != nil {
		return nil, fmt.Errorf("bot: read voice note: %w", err)
	}
	if len(data) > maxVoiceNoteBytes {
		return nil, fmt.Errorf("bot: voice note exceeds %d bytes", maxVoiceNoteBytes)
	}
	return data, nil
}

// notify sends a one-off plain message, swallowing delivery failures.
func (b *Bot) notify(ctx context.Context, chatID, text string) {
	if _, err := b.messenger.SendMessage(ctx, chatID, text, nil); err != nil {
		b.log.Warn("bot: notice failed", "chat", chatID, "err", err)
	}
}

// voiceAttachment returns the first audio attachment of a message, if any.
func voiceAttachment(m *discordgo.Message) *discordgo.MessageAttachment {
	for _, att := range m.Attachments {
		if strings.HasPrefix(att.ContentType, "audio/") ||
			strings.HasSuffix(strings.ToLower(att.Filename), ".ogg") {
			return att
		}
	}
	return nil
}
