package correction

import (
	"sync"

	"github.com/google/uuid"
)

// Records stages edit lists for on-demand display. Each stored list gets a
// generated correlation id that is embedded in a "show corrections" button;
// pressing the button retrieves and deletes the record, so a stale button
// press after display is a miss, not a repeat.
//
// Records is safe for concurrent use.
type Records struct {
	mu    sync.Mutex
	chats map[string]map[string][]Edit
}

// NewRecords returns an empty record store.
func NewRecords() *Records {
	return &Records{chats: make(map[string]map[string][]Edit)}
}

// Put stages edits for the chat and returns the correlation id to embed in
// the action code.
func (r *Records) Put(chatID string, edits []Edit) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.chats[chatID]
	if !ok {
		byID = make(map[string][]Edit)
		r.chats[chatID] = byID
	}
	byID[id] = edits
	return id
}

// Take retrieves and removes the record with the given id. The second return
// is false when the id is unknown for the chat (already displayed, cleared,
// or never existed).
func (r *Records) Take(chatID, id string) ([]Edit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.chats[chatID]
	if !ok {
		return nil, false
	}
	edits, ok := byID[id]
	if !ok {
		return nil, false
	}
	delete(byID, id)
	if len(byID) == 0 {
		delete(r.chats, chatID)
	}
	return edits, true
}

// Clear removes every staged record for the chat. Called on session reset.
func (r *Records) Clear(chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.chats, chatID)
}
