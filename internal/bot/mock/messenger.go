// Package mock provides a test double for the bot.Messenger interface.
//
// Use Messenger to verify what the renderer delivered and how actions were
// acknowledged without a live Discord session.
package mock

import (
	"context"
	"fmt"
	"sync"

	"speakcheck/internal/practice"
)

// SendCall records a single invocation of Messenger.SendMessage.
type SendCall struct {
	ChatID   string
	Text     string
	Keyboard practice.Keyboard
}

// EditCall records a single invocation of Messenger.EditMessage.
type EditCall struct {
	ChatID   string
	Ref      string
	Text     string
	Keyboard practice.Keyboard
}

// DeleteCall records a single invocation of Messenger.DeleteMessage.
type DeleteCall struct {
	ChatID string
	Ref    string
}

// AckCall records a single invocation of Messenger.AcknowledgeAction.
type AckCall struct {
	Ref   string
	Alert string
}

// Messenger is a mock implementation of bot.Messenger. The zero value
// succeeds on every operation; set the Err fields to force failures.
type Messenger struct {
	mu sync.Mutex

	// SendErr, if non-nil, is returned from SendMessage.
	SendErr error

	// EditErr, if non-nil, is returned from EditMessage.
	EditErr error

	// DeleteErr, if non-nil, is returned from DeleteMessage.
	DeleteErr error

	// AckErr, if non-nil, is returned from AcknowledgeAction.
	AckErr error

	// SendCalls, EditCalls, DeleteCalls, and AckCalls record every call in
	// order.
	SendCalls   []SendCall
	EditCalls   []EditCall
	DeleteCalls []DeleteCall
	AckCalls    []AckCall
}

// SendMessage records the call and returns a generated ref of the form
// "msg-N", N counting sends from 1.
func (m *Messenger) SendMessage(_ context.Context, chatID, text string, kb practice.Keyboard) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendCalls = append(m.SendCalls, SendCall{ChatID: chatID, Text: text, Keyboard: kb})
	if m.SendErr != nil {
		return "", m.SendErr
	}
	return fmt.Sprintf("msg-%d", len(m.SendCalls)), nil
}

// EditMessage records the call and returns the configured error.
func (m *Messenger) EditMessage(_ context.Context, chatID, ref, text string, kb practice.Keyboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EditCalls = append(m.EditCalls, EditCall{ChatID: chatID, Ref: ref, Text: text, Keyboard: kb})
	return m.EditErr
}

// DeleteMessage records the call and returns the configured error.
func (m *Messenger) DeleteMessage(_ context.Context, chatID, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, DeleteCall{ChatID: chatID, Ref: ref})
	return m.DeleteErr
}

// AcknowledgeAction records the call and returns the configured error.
func (m *Messenger) AcknowledgeAction(_ context.Context, ref, alert string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AckCalls = append(m.AckCalls, AckCall{Ref: ref, Alert: alert})
	return m.AckErr
}

// Reset clears all recorded calls. Thread-safe.
func (m *Messenger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendCalls = nil
	m.EditCalls = nil
	m.DeleteCalls = nil
	m.AckCalls = nil
}
