package catalog

import (
	"errors"
	"strings"
	"testing"
)

func validFile() *File {
	return &File{
		Part1: []Topic{{
			Key:       "hometown",
			Title:     "Hometown",
			Questions: []string{"Where is your hometown?", "What do you like most about it?"},
		}},
		Part2: []Topic{{
			Key:   "energetic_person",
			Title: "Energetic person",
			Card:  "Describe an energetic person you know.",
		}},
		Part3: []Topic{{
			Key:       "physical_work_robots",
			Title:     "Physical work, robots",
			Questions: []string{"Do you think machines could replace human workers?"},
		}},
	}
}

// ── Part ──────────────────────────────────────────────────────────────────────

func TestPartValid(t *testing.T) {
	for _, p := range []Part{PartOne, PartTwo, PartThree} {
		if !p.Valid() {
			t.Errorf("Valid() = false for %v", p)
		}
	}
	if Part(0).Valid() || Part(4).Valid() {
		t.Error("Valid() = true for out-of-range part")
	}
}

func TestPartString(t *testing.T) {
	if got := PartTwo.String(); got != "Part 2" {
		t.Errorf("String() = %q, want %q", got, "Part 2")
	}
	if got := Part(9).String(); !strings.Contains(got, "9") {
		t.Errorf("String() = %q, want the raw value included", got)
	}
}

// ── New / validation ──────────────────────────────────────────────────────────

func TestNewValid(t *testing.T) {
	c, err := New(validFile())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	topics, err := c.Topics(PartOne)
	if err != nil {
		t.Fatalf("Topics() error = %v", err)
	}
	if len(topics) != 1 {
		t.Errorf("Topics(PartOne) len = %d, want 1", len(topics))
	}
}

func TestNewNilFile(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) error = nil, want error")
	}
}

func TestNewEmptyPart(t *testing.T) {
	f := validFile()
	f.Part3 = nil
	if _, err := New(f); err == nil {
		t.Fatal("New() error = nil, want error for empty part")
	}
}

func TestNewTopicMissingKey(t *testing.T) {
	f := validFile()
	f.Part1[0].Key = ""
	if _, err := New(f); err == nil {
		t.Fatal("New() error = nil, want error for missing key")
	}
}

func TestNewTopicMissingTitle(t *testing.T) {
	f := validFile()
	f.Part1[0].Title = ""
	if _, err := New(f); err == nil {
		t.Fatal("New() error = nil, want error for missing title")
	}
}

func TestNewPartTwoRequiresCard(t *testing.T) {
	f := validFile()
	f.Part2[0].Card = ""
	f.Part2[0].Questions = []string{"not a cue card"}
	if _, err := New(f); err == nil {
		t.Fatal("New() error = nil, want error for part 2 topic without a card")
	}
}

func TestNewInterviewPartRejectsCard(t *testing.T) {
	f := validFile()
	f.Part1[0].Card = "cue cards belong to part 2"
	if _, err := New(f); err == nil {
		t.Fatal("New() error = nil, want error for part 1 topic with a card")
	}
}

func TestNewEmptyQuestion(t *testing.T) {
	f := validFile()
	f.Part3[0].Questions = []string{"fine", ""}
	if _, err := New(f); err == nil {
		t.Fatal("New() error = nil, want error for empty question")
	}
}

func TestNewDuplicateKey(t *testing.T) {
	f := validFile()
	f.Part1 = append(f.Part1, f.Part1[0])
	if _, err := New(f); err == nil {
		t.Fatal("New() error = nil, want error for duplicate key")
	}
}

func TestNewJoinsAllErrors(t *testing.T) {
	f := validFile()
	f.Part1[0].Key = ""
	f.Part2[0].Card = ""
	_, err := New(f)
	if err == nil {
		t.Fatal("New() error = nil, want joined errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Part 1") || !strings.Contains(msg, "Part 2") {
		t.Errorf("New() error = %q, want both part errors reported", msg)
	}
}

// ── lookups ───────────────────────────────────────────────────────────────────

func TestTopicLookup(t *testing.T) {
	c, err := New(validFile())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	topic, err := c.Topic(PartTwo, "energetic_person")
	if err != nil {
		t.Fatalf("Topic() error = %v", err)
	}
	if topic.Title != "Energetic person" {
		t.Errorf("Topic().Title = %q", topic.Title)
	}

	if _, err := c.Topic(PartTwo, "no_such_topic"); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Topic() error = %v, want ErrUnknownTopic", err)
	}
	if _, err := c.Topic(Part(7), "hometown"); !errors.Is(err, ErrUnknownPart) {
		t.Errorf("Topic() error = %v, want ErrUnknownPart", err)
	}
	if _, err := c.Topics(Part(7)); !errors.Is(err, ErrUnknownPart) {
		t.Errorf("Topics() error = %v, want ErrUnknownPart", err)
	}
}

// ── Topic prompts ─────────────────────────────────────────────────────────────

func TestTopicPromptQuestions(t *testing.T) {
	topic := Topic{Questions: []string{"first", "second"}}
	if got := topic.PromptCount(); got != 2 {
		t.Errorf("PromptCount() = %d, want 2", got)
	}
	q, ok := topic.Prompt(1)
	if !ok || q != "second" {
		t.Errorf("Prompt(1) = %q, %v", q, ok)
	}
	if _, ok := topic.Prompt(2); ok {
		t.Error("Prompt(2) ok = true, want false past the end")
	}
	if _, ok := topic.Prompt(-1); ok {
		t.Error("Prompt(-1) ok = true, want false")
	}
}

func TestTopicPromptCard(t *testing.T) {
	topic := Topic{Card: "Describe an energetic person you know."}
	if got := topic.PromptCount(); got != 1 {
		t.Errorf("PromptCount() = %d, want 1", got)
	}
	card, ok := topic.Prompt(0)
	if !ok || card != topic.Card {
		t.Errorf("Prompt(0) = %q, %v", card, ok)
	}
	if _, ok := topic.Prompt(1); ok {
		t.Error("Prompt(1) ok = true for a cue card topic")
	}
}

// ── loading ───────────────────────────────────────────────────────────────────

func TestLoadRejectsUnknownField(t *testing.T) {
	doc := strings.NewReader(`
part1:
  - key: hometown
    title: Hometown
    questions: ["Where is your hometown?"]
    difficulty: hard
part2:
  - key: energetic_person
    title: Energetic person
    card: Describe an energetic person you know.
part3:
  - key: robots
    title: Robots
    questions: ["Will robots replace workers?"]
`)
	if _, err := Load(doc); err == nil {
		t.Fatal("Load() error = nil, want error for unknown field")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(strings.NewReader("part1: [")); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	for _, part := range []Part{PartOne, PartTwo, PartThree} {
		topics, err := c.Topics(part)
		if err != nil {
			t.Fatalf("Topics(%v) error = %v", part, err)
		}
		if len(topics) == 0 {
			t.Errorf("Default() has no topics for %v", part)
		}
	}

	topic, err := c.Topic(PartTwo, "energetic_person")
	if err != nil {
		t.Fatalf("Topic() error = %v", err)
	}
	if !strings.Contains(topic.Card, "energetic person") {
		t.Errorf("cue card = %q, want the prompt text", topic.Card)
	}

	topic, err = c.Topic(PartOne, "hometown")
	if err != nil {
		t.Fatalf("Topic() error = %v", err)
	}
	if topic.PromptCount() == 0 {
		t.Error("hometown topic has no questions")
	}
}
