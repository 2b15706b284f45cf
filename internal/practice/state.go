package practice

import (
	"sync"

	"speakcheck/internal/catalog"
)

// Phase is the per-chat position in the rehearsal flow.
type Phase int

const (
	// PhaseIdle means no practice is in progress.
	PhaseIdle Phase = iota

	// PhaseSelectingPart means the part-choice keyboard is showing.
	PhaseSelectingPart

	// PhaseSelectingTopic means a part is chosen and the topic keyboard is
	// showing. Session.Part identifies the part.
	PhaseSelectingTopic

	// PhaseAwaitingAnswer means a question or cue card is out and the next
	// utterance is treated as an answer.
	PhaseAwaitingAnswer

	// PhasePartTwoPending means the Part 2 card was answered and the user is
	// choosing between Part 3 and stopping.
	PhasePartTwoPending
)

// String returns the phase name for logs.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSelectingPart:
		return "selecting_part"
	case PhaseSelectingTopic:
		return "selecting_topic"
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	case PhasePartTwoPending:
		return "part_two_pending"
	default:
		return "unknown"
	}
}

// Session is the mutable per-chat rehearsal state. It is owned by a [Store]
// and only touched inside [Store.With].
type Session struct {
	Phase         Phase
	Part          catalog.Part
	TopicKey      string
	QuestionIndex int
}

// WaitingAnswer reports whether the next inbound utterance should be treated
// as an exam answer.
func (s Session) WaitingAnswer() bool {
	return s.Phase == PhaseAwaitingAnswer
}

// reset clears the session back to idle.
func (s *Session) reset() {
	*s = Session{}
}

// chatState pairs a session with the mutex that serialises its chat's events.
type chatState struct {
	mu   sync.Mutex
	sess Session
}

// Store holds one [Session] per chat. Sessions are created on first touch and
// live for the process lifetime. Events for the same chat are serialised by a
// per-chat mutex; different chats proceed concurrently.
type Store struct {
	mu    sync.Mutex
	chats map[string]*chatState
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{chats: make(map[string]*chatState)}
}

// With runs fn with exclusive access to the chat's session. The per-chat lock
// is held for the full duration of fn, so a slow correction call for one chat
// never delays another chat's events.
func (st *Store) With(chatID string, fn func(*Session)) {
	st.mu.Lock()
	cs, ok := st.chats[chatID]
	if !ok {
		cs = &chatState{}
		st.chats[chatID] = cs
	}
	st.mu.Unlock()

	cs.mu.Lock()
	defer cs.mu.Unlock()
	fn(&cs.sess)
}

// Snapshot returns a copy of the chat's current session. Intended for logs
// and tests; mutations must go through [Store.With].
func (st *Store) Snapshot(chatID string) Session {
	var out Session
	st.With(chatID, func(s *Session) {
		out = *s
	})
	return out
}

// ActiveCount returns the number of chats currently in a non-idle phase.
func (st *Store) ActiveCount() int {
	st.mu.Lock()
	chats := make([]*chatState, 0, len(st.chats))
	for _, cs := range st.chats {
		chats = append(chats, cs)
	}
	st.mu.Unlock()

	n := 0
	for _, cs := range chats {
		cs.mu.Lock()
		if cs.sess.Phase != PhaseIdle {
			n++
		}
		cs.mu.Unlock()
	}
	return n
}
