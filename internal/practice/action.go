package practice

import (
	"fmt"
	"strings"

	"speakcheck/internal/catalog"
)

// ActionKind discriminates the button actions the engine understands.
type ActionKind int

const (
	// ActionUnknown is an action code that matched no known pattern. The
	// engine logs and ignores it but still acknowledges the press.
	ActionUnknown ActionKind = iota

	// ActionSelectPart enters topic selection for a part.
	ActionSelectPart

	// ActionSelectTopic starts practice on a topic of the current part.
	ActionSelectTopic

	// ActionBackToParts returns to part selection.
	ActionBackToParts

	// ActionCancel aborts the current practice or selection.
	ActionCancel

	// ActionStopPractice stops an in-progress practice.
	ActionStopPractice

	// ActionShowCorrections displays a staged correction record.
	ActionShowCorrections
)

// Action is a decoded button press. Codes are parsed once at the transport
// boundary; the engine switches on Kind and never inspects raw strings.
type Action struct {
	Kind ActionKind

	// Part is set for ActionSelectPart and ActionSelectTopic.
	Part catalog.Part

	// TopicKey is set for ActionSelectTopic.
	TopicKey string

	// CorrectionID is set for ActionShowCorrections.
	CorrectionID string
}

const (
	codeBackParts       = "back_parts"
	codeCancel          = "cancel"
	codeStopPractice    = "stop_practice"
	prefixSelectPart    = "select_part_"
	prefixShowCorrected = "show_corrections_"
)

// ParseAction decodes a raw action code. Unrecognised codes yield
// [ActionUnknown] rather than an error so stale or foreign buttons degrade to
// a logged no-op.
func ParseAction(code string) Action {
	switch code {
	case codeCancel:
		return Action{Kind: ActionCancel}
	case codeBackParts:
		return Action{Kind: ActionBackToParts}
	case codeStopPractice:
		return Action{Kind: ActionStopPractice}
	case "select_part_1":
		return Action{Kind: ActionSelectPart, Part: catalog.PartOne}
	case "select_part_2":
		return Action{Kind: ActionSelectPart, Part: catalog.PartTwo}
	case "select_part_3", "select_part_3_direct":
		// The direct variant is offered at the end of Part 2. Both paths
		// must land in the same topic-selection state.
		return Action{Kind: ActionSelectPart, Part: catalog.PartThree}
	}

	if id, ok := strings.CutPrefix(code, prefixShowCorrected); ok && id != "" {
		return Action{Kind: ActionShowCorrections, CorrectionID: id}
	}

	for _, part := range []catalog.Part{catalog.PartOne, catalog.PartTwo, catalog.PartThree} {
		prefix := fmt.Sprintf("select_topic_part%d_", int(part))
		if key, ok := strings.CutPrefix(code, prefix); ok && key != "" {
			return Action{Kind: ActionSelectTopic, Part: part, TopicKey: key}
		}
	}

	return Action{Kind: ActionUnknown}
}

// ShowCorrectionsAction returns the action code that displays the staged
// correction record with the given id. Transports use it when they stage
// corrections outside a practice flow.
func ShowCorrectionsAction(id string) string {
	return showCorrectionsCode(id)
}

// selectPartCode encodes the action for entering a part's topic selection.
func selectPartCode(part catalog.Part) string {
	return fmt.Sprintf("%s%d", prefixSelectPart, int(part))
}

// selectTopicCode encodes the action for starting practice on a topic.
func selectTopicCode(part catalog.Part, key string) string {
	return fmt.Sprintf("select_topic_part%d_%s", int(part), key)
}

// showCorrectionsCode encodes the action for displaying a correction record.
func showCorrectionsCode(id string) string {
	return prefixShowCorrected + id
}
