package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"speakcheck/internal/practice"
)

// Messenger abstracts the chat transport the renderer delivers through.
// Implementations must be safe for concurrent use.
type Messenger interface {
	// SendMessage posts a new message to the chat and returns a reference
	// usable with EditMessage and DeleteMessage.
	SendMessage(ctx context.Context, chatID, text string, kb practice.Keyboard) (string, error)

	// EditMessage replaces the text and keyboard of a previously sent
	// message.
	EditMessage(ctx context.Context, chatID, ref, text string, kb practice.Keyboard) error

	// DeleteMessage removes a previously sent message.
	DeleteMessage(ctx context.Context, chatID, ref string) error

	// AcknowledgeAction resolves a pending button press. An empty alert is a
	// silent acknowledgement; a non-empty alert is shown to the user as a
	// private notice. Each action ref must be acknowledged exactly once.
	AcknowledgeAction(ctx context.Context, ref, alert string) error
}

// discordMessenger implements Messenger on a discordgo session. Button
// presses arrive as interactions that must be responded to within Discord's
// deadline, so pending interactions are tracked by ref until acknowledged.
// Keyboards too large for one message are paginated; the full button list is
// remembered per chat so page controls can re-render the message.
type discordMessenger struct {
	session *discordgo.Session

	mu      sync.Mutex
	pending map[string]*discordgo.Interaction
	paged   map[string]*pagedKeyboard
}

// pagedKeyboard is the mutable paging state of one oversized keyboard
// message. ref is the message carrying the keyboard.
type pagedKeyboard struct {
	ref     string
	buttons []practice.Button
	page    int
}

var _ Messenger = (*discordMessenger)(nil)

func newDiscordMessenger(session *discordgo.Session) *discordMessenger {
	return &discordMessenger{
		session: session,
		pending: make(map[string]*discordgo.Interaction),
		paged:   make(map[string]*pagedKeyboard),
	}
}

// track registers an interaction awaiting acknowledgement and returns its ref.
func (m *discordMessenger) track(i *discordgo.Interaction) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[i.ID] = i
	return i.ID
}

func (m *discordMessenger) take(ref string) *discordgo.Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.pending[ref]
	delete(m.pending, ref)
	return i
}

func (m *discordMessenger) SendMessage(ctx context.Context, chatID, text string, kb practice.Keyboard) (string, error) {
	comps, buttons := messageComponents(kb)
	msg, err := m.session.ChannelMessageSendComplex(chatID, &discordgo.MessageSend{
		Content:    text,
		Components: comps,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("bot: send message: %w", err)
	}
	if buttons != nil {
		m.storePaged(chatID, msg.ID, buttons)
	}
	return msg.ID, nil
}

func (m *discordMessenger) EditMessage(ctx context.Context, chatID, ref, text string, kb practice.Keyboard) error {
	comps, buttons := messageComponents(kb)
	_, err := m.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    chatID,
		ID:         ref,
		Content:    &text,
		Components: &comps,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bot: edit message: %w", err)
	}
	if buttons != nil {
		m.storePaged(chatID, ref, buttons)
	}
	return nil
}

// storePaged remembers the flattened button list behind a paginated keyboard
// message. One paged keyboard per chat: a newer one replaces the previous.
func (m *discordMessenger) storePaged(chatID, ref string, buttons []practice.Button) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paged[chatID] = &pagedKeyboard{ref: ref, buttons: buttons}
}

// flipPage re-renders a paginated keyboard message at its new page. The
// interaction is answered in the same call: an in-place component update for
// a live keyboard, a silent acknowledgement for a stale control.
func (m *discordMessenger) flipPage(ctx context.Context, i *discordgo.Interaction, delta int) error {
	m.mu.Lock()
	pk := m.paged[i.ChannelID]
	live := pk != nil && i.Message != nil && pk.ref == i.Message.ID
	var comps []discordgo.MessageComponent
	if live {
		pages := (len(pk.buttons) + pageButtons - 1) / pageButtons
		pk.page = max(0, min(pk.page+delta, pages-1))
		comps, _ = pageComponents(pk.buttons, pk.page)
	}
	m.mu.Unlock()

	if !live {
		err := m.session.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		}, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("bot: acknowledge stale page control: %w", err)
		}
		return nil
	}

	err := m.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Components: comps,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bot: flip keyboard page: %w", err)
	}
	return nil
}

func (m *discordMessenger) DeleteMessage(ctx context.Context, chatID, ref string) error {
	if err := m.session.ChannelMessageDelete(chatID, ref, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("bot: delete message: %w", err)
	}
	return nil
}

func (m *discordMessenger) AcknowledgeAction(ctx context.Context, ref, alert string) error {
	i := m.take(ref)
	if i == nil {
		return fmt.Errorf("bot: no pending action %q", ref)
	}

	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}
	if alert != "" {
		resp = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: alert,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}
	}

	if err := m.session.InteractionRespond(i, resp, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("bot: acknowledge action: %w", err)
	}
	return nil
}

// keyboardComponents converts a practice keyboard into Discord button rows.
// The action code becomes the button's custom ID and is parsed back by
// [practice.ParseAction] when pressed.
func keyboardComponents(kb practice.Keyboard) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, len(kb))
	for _, row := range kb {
		btns := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			btns = append(btns, discordgo.Button{
				Label:    b.Label,
				Style:    discordgo.PrimaryButton,
				CustomID: b.Action,
			})
		}
		if len(btns) > 0 {
			rows = append(rows, discordgo.ActionsRow{Components: btns})
		}
	}
	return rows
}
