// Package practice implements the speaking-exam rehearsal flow: a per-chat
// state machine over part selection, topic selection, sequential question
// delivery, and answer collection, with grammar correction interleaved as a
// side channel that never blocks question advancement.
package practice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"speakcheck/internal/catalog"
	"speakcheck/internal/correction"
)

// GrammarChecker annotates an answer with corrections. Implementations must
// degrade internally; the engine treats [correction.Unavailable] as "no
// annotation this turn" and advances regardless.
type GrammarChecker interface {
	Check(ctx context.Context, text string) correction.Outcome
}

// EngineOption is a functional option for configuring an [Engine].
type EngineOption func(*Engine)

// WithLogger sets the engine's logger. Default: [slog.Default].
func WithLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// Engine drives the rehearsal state machine. All state lives in the [Store];
// the engine itself is stateless and safe for concurrent use.
type Engine struct {
	catalog *catalog.Catalog
	checker GrammarChecker
	records *correction.Records
	store   *Store
	log     *slog.Logger
}

// NewEngine wires the engine to its collaborators.
func NewEngine(cat *catalog.Catalog, checker GrammarChecker, records *correction.Records, store *Store, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog: cat,
		checker: checker,
		records: records,
		store:   store,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Store exposes the session store, mainly for health and metrics reporting.
func (e *Engine) Store() *Store {
	return e.store
}

// Start resets the chat and renders the part-choice keyboard.
func (e *Engine) Start(chatID string) Directive {
	var d Directive
	e.store.With(chatID, func(s *Session) {
		s.reset()
		s.Phase = PhaseSelectingPart
		e.records.Clear(chatID)
		d.send("Choose a speaking part:", e.partsKeyboard())
	})
	return d
}

// HandleAction processes a decoded button press and returns the rendering
// directive. It never returns an error: every failure path degrades to a
// notice or an alert and a safe state.
func (e *Engine) HandleAction(ctx context.Context, chatID string, a Action) Directive {
	var d Directive
	e.store.With(chatID, func(s *Session) {
		d = e.handleAction(ctx, chatID, s, a)
	})
	return d
}

func (e *Engine) handleAction(ctx context.Context, chatID string, s *Session, a Action) Directive {
	var d Directive

	switch a.Kind {
	case ActionCancel, ActionBackToParts, ActionStopPractice:
		notice := "Practice cancelled."
		switch a.Kind {
		case ActionStopPractice:
			notice = "Practice stopped."
		case ActionBackToParts:
			notice = "Returned to part selection."
		}
		s.reset()
		s.Phase = PhaseSelectingPart
		e.records.Clear(chatID)
		d.edit(notice, nil)
		d.send("Choose a speaking part:", e.partsKeyboard())
		return d

	case ActionShowCorrections:
		// Display never touches session state.
		return e.showCorrections(chatID, a.CorrectionID)

	case ActionSelectPart, ActionSelectTopic:
		if s.WaitingAnswer() {
			d.Alert = "Please stop the current practice first (Stop Practice button)."
			return d
		}
	}

	switch a.Kind {
	case ActionSelectPart:
		return e.selectPart(s, a.Part)

	case ActionSelectTopic:
		return e.selectTopic(s, a)

	case ActionUnknown:
		e.log.Warn("ignoring unknown action code", "chat_id", chatID)
		return d

	default:
		// Unreachable state combination: dump and reset rather than hang.
		e.log.Error("unhandled action in practice engine",
			"chat_id", chatID,
			"action_kind", int(a.Kind),
			"phase", s.Phase.String(),
			"part", int(s.Part),
			"topic", s.TopicKey)
		s.reset()
		s.Phase = PhaseSelectingPart
		d.edit("An unexpected error occurred. Choose a speaking part:", e.partsKeyboard())
		return d
	}
}

func (e *Engine) selectPart(s *Session, part catalog.Part) Directive {
	var d Directive

	topics, err := e.catalog.Topics(part)
	if err != nil || len(topics) == 0 {
		e.log.Warn("part has no topics", "part", int(part), "error", err)
		d.Alert = fmt.Sprintf("Sorry, no %v topics available yet.", part)
		return d
	}

	s.reset()
	s.Phase = PhaseSelectingTopic
	s.Part = part

	label := "Topic"
	if part == catalog.PartTwo {
		label = "Cue Card Topic"
	}
	d.edit(fmt.Sprintf("Choose %v %s:", part, label), e.topicsKeyboard(part, topics))
	return d
}

func (e *Engine) selectTopic(s *Session, a Action) Directive {
	var d Directive

	topic, err := e.catalog.Topic(a.Part, a.TopicKey)
	if err != nil || s.Part != a.Part || topic.PromptCount() == 0 {
		e.log.Warn("topic selection failed",
			"part", int(a.Part),
			"topic", a.TopicKey,
			"session_part", int(s.Part),
			"error", err)
		s.reset()
		s.Phase = PhaseSelectingPart
		d.Alert = "Error selecting topic or topic is empty."
		d.edit("Choose a speaking part:", e.partsKeyboard())
		return d
	}

	s.Phase = PhaseAwaitingAnswer
	s.Part = a.Part
	s.TopicKey = a.TopicKey
	s.QuestionIndex = 0

	if a.Part == catalog.PartTwo {
		d.edit(fmt.Sprintf("%v: Cue Card\nTopic: %s\n\nYou have 1 minute to prepare your answer.", a.Part, topic.Title), nil)
		d.send(topic.Card, e.practiceKeyboard())
		return d
	}

	question, _ := topic.Prompt(0)
	d.edit(formatQuestion(topic, 0, question), e.practiceKeyboard())
	return d
}

// HandleAnswer processes a free-form utterance. The second return is false
// when the chat is not awaiting an answer, in which case the utterance
// belongs to the ordinary message flow and the directive is empty.
func (e *Engine) HandleAnswer(ctx context.Context, chatID, answer string) (Directive, bool) {
	var (
		d       Directive
		handled bool
	)
	e.store.With(chatID, func(s *Session) {
		if !s.WaitingAnswer() {
			return
		}
		handled = true
		d = e.handleAnswer(ctx, chatID, s, answer)
	})
	return d, handled
}

func (e *Engine) handleAnswer(ctx context.Context, chatID string, s *Session, answer string) Directive {
	var d Directive

	e.annotate(ctx, chatID, &d, answer)

	if s.Part == catalog.PartTwo {
		s.Phase = PhasePartTwoPending
		s.TopicKey = ""
		d.send("OK, that's the end of Part 2.", nil)
		d.send("Now, let's move to Part 3 discussion questions, or you can stop here.", Keyboard{
			{{Label: "Go to Part 3 Topics", Action: "select_part_3_direct"}},
			{{Label: "Stop Practice", Action: codeStopPractice}},
		})
		return d
	}

	topic, err := e.catalog.Topic(s.Part, s.TopicKey)
	if err != nil {
		e.log.Error("session references missing topic",
			"chat_id", chatID,
			"part", int(s.Part),
			"topic", s.TopicKey,
			"error", err)
		s.reset()
		s.Phase = PhaseSelectingPart
		d.send("Something went wrong with the topic. Stopping practice.", nil)
		d.send("Choose a speaking part:", e.partsKeyboard())
		return d
	}

	next := s.QuestionIndex + 1
	if question, ok := topic.Prompt(next); ok {
		s.QuestionIndex = next
		d.send(formatQuestion(topic, next, question), e.practiceKeyboard())
		return d
	}

	part := s.Part
	s.reset()
	s.Phase = PhaseSelectingTopic
	s.Part = part

	d.send(fmt.Sprintf("Topic %q finished!", topic.Title), nil)
	topics, err := e.catalog.Topics(part)
	if err != nil {
		e.log.Error("part disappeared from catalog", "part", int(part), "error", err)
		s.reset()
		s.Phase = PhaseSelectingPart
		d.send("Choose a speaking part:", e.partsKeyboard())
		return d
	}
	d.send(fmt.Sprintf("You can choose another %v topic below, or stop the practice.", part),
		e.topicsKeyboard(part, topics))
	return d
}

// annotate runs the grammar side channel and appends the analysis message
// when there is something to show. Failures are already degraded to
// [correction.Unavailable] by the checker and simply skip annotation.
func (e *Engine) annotate(ctx context.Context, chatID string, d *Directive, answer string) {
	if e.checker == nil {
		return
	}

	out := e.checker.Check(ctx, answer)
	switch out.Kind {
	case correction.Annotated:
		id := e.records.Put(chatID, out.Edits)
		d.send(
			fmt.Sprintf("Your Answer Analysis:\nOriginal:\n%q\n\nSuggestion:\n%q", answer, out.Corrected),
			Keyboard{{{Label: "Show Corrections", Action: showCorrectionsCode(id)}}},
		)
	case correction.MinorRevision:
		d.send(fmt.Sprintf("Your Answer Analysis:\nOriginal:\n%q\n\nSuggestion (minor changes):\n%q", answer, out.Corrected), nil)
	case correction.Unavailable:
		e.log.Warn("grammar annotation unavailable, advancing without it", "chat_id", chatID)
	}
}

// showCorrections renders a staged correction record. Records are deleted on
// first display; a repeat press alerts instead of re-rendering.
func (e *Engine) showCorrections(chatID, id string) Directive {
	var d Directive

	edits, ok := e.records.Take(chatID, id)
	if !ok || len(edits) == 0 {
		e.log.Warn("correction record not found", "chat_id", chatID, "correction_id", id)
		d.Alert = "Corrections not found or already shown."
		return d
	}

	var sb strings.Builder
	sb.WriteString("Explanation:\n\n")
	for i, edit := range edits {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, edit.Original)
		fmt.Fprintf(&sb, "   -> %s (%s)\n\n", edit.Corrected, edit.Explanation)
	}
	d.send(strings.TrimSpace(sb.String()), nil)
	return d
}

func formatQuestion(topic catalog.Topic, index int, question string) string {
	return fmt.Sprintf("Topic: %s\nQuestion %d/%d:\n\n%s",
		topic.Title, index+1, topic.PromptCount(), question)
}

func (e *Engine) partsKeyboard() Keyboard {
	return Keyboard{
		{{Label: "Part 1", Action: selectPartCode(catalog.PartOne)}},
		{{Label: "Part 2", Action: selectPartCode(catalog.PartTwo)}},
		{{Label: "Part 3", Action: selectPartCode(catalog.PartThree)}},
		{{Label: "Cancel", Action: codeCancel}},
	}
}

func (e *Engine) topicsKeyboard(part catalog.Part, topics []catalog.Topic) Keyboard {
	kb := make(Keyboard, 0, len(topics)+1)
	for _, t := range topics {
		kb = append(kb, []Button{{Label: t.Title, Action: selectTopicCode(part, t.Key)}})
	}
	kb = append(kb, []Button{{Label: "Back to Parts", Action: codeBackParts}})
	return kb
}

func (e *Engine) practiceKeyboard() Keyboard {
	return Keyboard{{{Label: "Stop Practice", Action: codeStopPractice}}}
}
