// Package bot provides the Discord chat layer for SpeakCheck. It owns the
// discordgo.Session lifecycle, turns inbound messages and button presses into
// engine calls, and renders directives back into chat messages with button
// keyboards.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"speakcheck/internal/correction"
	"speakcheck/internal/observe"
	"speakcheck/internal/practice"
	"speakcheck/pkg/audio"
	"speakcheck/pkg/provider/stt"
)

// practiceCommandName is the slash command that starts a rehearsal session.
const practiceCommandName = "practice"

var practiceCommand = &discordgo.ApplicationCommand{
	Name:        practiceCommandName,
	Description: "Start an IELTS speaking practice session.",
}

// Config holds Discord bot configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string `yaml:"token"`

	// GuildID limits slash command registration to one guild. Empty
	// registers the command globally.
	GuildID string `yaml:"guild_id"`
}

// Bot owns the Discord gateway connection. Inbound events are routed to the
// practice engine or the plain grammar-check flow; outbound directives go
// through the [Renderer].
type Bot struct {
	cfg       Config
	session   *discordgo.Session
	dm        *discordMessenger
	messenger Messenger
	renderer  *Renderer

	engine  *practice.Engine
	checker practice.GrammarChecker
	records *correction.Records
	stt     stt.Provider

	metrics *observe.Metrics
	http    *http.Client
	log     *slog.Logger

	// decodeVoice decodes a downloaded voice note into PCM. Replaced in
	// tests to avoid synthesising OGG containers.
	decodeVoice func(data []byte) (pcm []byte, channels int, err error)

	commands  []*discordgo.ApplicationCommand
	closeOnce sync.Once
}

// Option customises a Bot.
type Option func(*Bot)

// WithLogger sets the bot's logger.
func WithLogger(log *slog.Logger) Option {
	return func(b *Bot) { b.log = log }
}

// WithMetrics sets the metrics instance the bot records into.
func WithMetrics(m *observe.Metrics) Option {
	return func(b *Bot) { b.metrics = m }
}

// WithHTTPClient sets the client used to download voice attachments.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bot) { b.http = c }
}

// New creates a Bot, connects to the Discord gateway, and registers the
// event handlers.
func New(cfg Config, engine *practice.Engine, checker practice.GrammarChecker, records *correction.Records, transcriber stt.Provider, opts ...Option) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("bot: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		cfg:         cfg,
		session:     session,
		engine:      engine,
		checker:     checker,
		records:     records,
		stt:         transcriber,
		metrics:     observe.DefaultMetrics(),
		http:        &http.Client{Timeout: 30 * time.Second},
		log:         slog.Default(),
		decodeVoice: audio.DecodeOggOpus,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.dm = newDiscordMessenger(session)
	b.messenger = b.dm
	b.renderer = NewRenderer(b.dm, WithRendererLogger(b.log))

	session.AddHandler(b.handleInteraction)
	session.AddHandler(b.handleMessage)

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("bot: open session: %w", err)
	}

	return b, nil
}

// Ready reports whether the gateway connection is established. Used by the
// readiness probe.
func (b *Bot) Ready() bool {
	return b.session != nil && b.session.State != nil && b.session.State.User != nil
}

// Run registers the practice slash command and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	appID := b.session.State.User.ID

	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, []*discordgo.ApplicationCommand{practiceCommand})
	if err != nil {
		return fmt.Errorf("bot: register commands: %w", err)
	}
	b.commands = registered
	b.log.Info("bot commands registered", "count", len(registered))

	<-ctx.Done()
	return ctx.Err()
}

// Close unregisters the slash command and disconnects from Discord.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		if b.session == nil {
			return
		}
		if len(b.commands) > 0 && b.session.State != nil && b.session.State.User != nil {
			appID := b.session.State.User.ID
			for _, cmd := range b.commands {
				if err := b.session.ApplicationCommandDelete(appID, b.cfg.GuildID, cmd.ID); err != nil {
					b.log.Warn("bot: failed to delete command", "name", cmd.Name, "err", err)
				}
			}
		}
		if err := b.session.Close(); err != nil {
			closeErr = fmt.Errorf("bot: close session: %w", err)
		}
		b.log.Info("bot closed")
	})
	return closeErr
}
