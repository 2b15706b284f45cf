// Package catalog holds the speaking-exam topic catalog: the three exam
// parts, their topics, and the interview questions or cue card belonging to
// each topic.
//
// The catalog is immutable after construction. New validates the raw file
// content up front so that the practice engine can index into parts, topics,
// and questions without re-checking bounds on every turn.
package catalog

import (
	"errors"
	"fmt"
)

// Part identifies one of the three sections of the speaking exam.
type Part int

const (
	// PartOne is the interview: short questions on familiar topics.
	PartOne Part = 1
	// PartTwo is the long turn: one cue card, one extended answer.
	PartTwo Part = 2
	// PartThree is the discussion: abstract follow-up questions.
	PartThree Part = 3
)

// Valid reports whether p is one of the three exam parts.
func (p Part) Valid() bool {
	return p == PartOne || p == PartTwo || p == PartThree
}

// String returns the display name, e.g. "Part 2".
func (p Part) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Part(%d)", int(p))
	}
	return fmt.Sprintf("Part %d", int(p))
}

var (
	// ErrUnknownPart is returned when a Part is outside 1..3.
	ErrUnknownPart = errors.New("catalog: unknown exam part")

	// ErrUnknownTopic is returned when a topic key does not exist in the
	// requested part.
	ErrUnknownTopic = errors.New("catalog: unknown topic")
)

// Topic is one practice subject within an exam part. Interview parts (1 and 3)
// carry a question list; the long turn (part 2) carries a single cue card.
type Topic struct {
	// Key is the stable identifier used in action codes and session state.
	Key string `yaml:"key"`

	// Title is the human-readable topic name shown on selection keyboards.
	Title string `yaml:"title"`

	// Questions is the ordered interview question list. Empty for cue-card
	// topics.
	Questions []string `yaml:"questions,omitempty"`

	// Card is the cue-card text for part 2 topics. Empty otherwise.
	Card string `yaml:"card,omitempty"`
}

// Prompt returns the i-th prompt of the topic. For cue-card topics the card is
// the only prompt (index 0). The second return is false when i is out of range.
func (t Topic) Prompt(i int) (string, bool) {
	if t.Card != "" {
		if i == 0 {
			return t.Card, true
		}
		return "", false
	}
	if i < 0 || i >= len(t.Questions) {
		return "", false
	}
	return t.Questions[i], true
}

// PromptCount returns the number of prompts the topic offers.
func (t Topic) PromptCount() int {
	if t.Card != "" {
		return 1
	}
	return len(t.Questions)
}

// File is the raw top-level structure of a catalog YAML document.
type File struct {
	Part1 []Topic `yaml:"part1"`
	Part2 []Topic `yaml:"part2"`
	Part3 []Topic `yaml:"part3"`
}

// Catalog is a validated, indexed topic catalog.
type Catalog struct {
	parts map[Part][]Topic
	index map[Part]map[string]int
}

// New validates f and builds an indexed Catalog. Topic order within each part
// is preserved; it drives keyboard layout.
func New(f *File) (*Catalog, error) {
	if f == nil {
		return nil, errors.New("catalog: file must not be nil")
	}

	c := &Catalog{
		parts: map[Part][]Topic{
			PartOne:   f.Part1,
			PartTwo:   f.Part2,
			PartThree: f.Part3,
		},
		index: make(map[Part]map[string]int, 3),
	}

	var errs []error
	for _, part := range []Part{PartOne, PartTwo, PartThree} {
		topics := c.parts[part]
		if len(topics) == 0 {
			errs = append(errs, fmt.Errorf("%v: must contain at least one topic", part))
			continue
		}
		idx := make(map[string]int, len(topics))
		for i, t := range topics {
			if err := validateTopic(part, t); err != nil {
				errs = append(errs, err)
				continue
			}
			if _, dup := idx[t.Key]; dup {
				errs = append(errs, fmt.Errorf("%v: duplicate topic key %q", part, t.Key))
				continue
			}
			idx[t.Key] = i
		}
		c.index[part] = idx
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("catalog: invalid catalog: %w", errors.Join(errs...))
	}
	return c, nil
}

// validateTopic checks a single topic against the rules of its part.
//
// Rules:
//   - Key and Title must be non-empty.
//   - Parts 1 and 3 need at least one question and no cue card.
//   - Part 2 needs a cue card and no question list.
func validateTopic(part Part, t Topic) error {
	if t.Key == "" {
		return fmt.Errorf("%v: topic with empty key (title %q)", part, t.Title)
	}
	if t.Title == "" {
		return fmt.Errorf("%v: topic %q: title must not be empty", part, t.Key)
	}
	if part == PartTwo {
		if t.Card == "" {
			return fmt.Errorf("%v: topic %q: cue card must not be empty", part, t.Key)
		}
		if len(t.Questions) > 0 {
			return fmt.Errorf("%v: topic %q: cue-card topics must not list questions", part, t.Key)
		}
		return nil
	}
	if len(t.Questions) == 0 {
		return fmt.Errorf("%v: topic %q: must contain at least one question", part, t.Key)
	}
	if t.Card != "" {
		return fmt.Errorf("%v: topic %q: only part 2 topics may carry a cue card", part, t.Key)
	}
	for i, q := range t.Questions {
		if q == "" {
			return fmt.Errorf("%v: topic %q: question[%d] must not be empty", part, t.Key, i)
		}
	}
	return nil
}

// Topics returns the ordered topic list of a part.
func (c *Catalog) Topics(part Part) ([]Topic, error) {
	if !part.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPart, int(part))
	}
	return c.parts[part], nil
}

// Topic looks up a topic by part and key.
func (c *Catalog) Topic(part Part, key string) (Topic, error) {
	if !part.Valid() {
		return Topic{}, fmt.Errorf("%w: %d", ErrUnknownPart, int(part))
	}
	i, ok := c.index[part][key]
	if !ok {
		return Topic{}, fmt.Errorf("%w: %q in %v", ErrUnknownTopic, key, part)
	}
	return c.parts[part][i], nil
}
