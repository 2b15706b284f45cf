package practice

import (
	"sync"
	"testing"
)

func TestStoreCreatesOnFirstTouch(t *testing.T) {
	st := NewStore()
	st.With("chat", func(s *Session) {
		if s.Phase != PhaseIdle {
			t.Fatalf("fresh session phase = %v, want idle", s.Phase)
		}
		s.Phase = PhaseSelectingPart
	})
	if got := st.Snapshot("chat").Phase; got != PhaseSelectingPart {
		t.Fatalf("phase = %v, mutation lost", got)
	}
}

func TestStoreChatsIndependent(t *testing.T) {
	st := NewStore()
	st.With("a", func(s *Session) { s.QuestionIndex = 3 })
	if got := st.Snapshot("b").QuestionIndex; got != 0 {
		t.Fatalf("chat b QuestionIndex = %d, want 0", got)
	}
}

func TestStoreSerializesPerChat(t *testing.T) {
	st := NewStore()
	const workers = 32

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.With("chat", func(s *Session) {
				s.QuestionIndex++
			})
		}()
	}
	wg.Wait()

	if got := st.Snapshot("chat").QuestionIndex; got != workers {
		t.Fatalf("QuestionIndex = %d, want %d", got, workers)
	}
}

func TestStoreActiveCount(t *testing.T) {
	st := NewStore()
	st.With("a", func(s *Session) { s.Phase = PhaseAwaitingAnswer })
	st.With("b", func(s *Session) { s.Phase = PhaseSelectingTopic })
	st.With("c", func(s *Session) {}) // stays idle

	if got := st.ActiveCount(); got != 2 {
		t.Fatalf("ActiveCount() = %d, want 2", got)
	}

	st.With("a", func(s *Session) { s.reset() })
	if got := st.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount() = %d after reset, want 1", got)
	}
}

func TestPhaseString(t *testing.T) {
	cases := map[Phase]string{
		PhaseIdle:           "idle",
		PhaseSelectingPart:  "selecting_part",
		PhaseSelectingTopic: "selecting_topic",
		PhaseAwaitingAnswer: "awaiting_answer",
		PhasePartTwoPending: "part_two_pending",
		Phase(99):           "unknown",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(p), got, want)
		}
	}
}
