package correction

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// locateThreshold is the minimum Jaro-Winkler similarity between a reported
// original phrase and some window of the input text for the edit to count as
// grounded in the input.
const locateThreshold = 0.85

// verifyEdits drops edits whose original phrase cannot be located in the
// input text. Models occasionally invent corrections for phrases the user
// never wrote; showing those would undermine trust in the ones that are real.
func verifyEdits(input string, edits []Edit) []Edit {
	if len(edits) == 0 {
		return edits
	}

	lowered := strings.ToLower(input)
	tokens := strings.Fields(lowered)

	verified := make([]Edit, 0, len(edits))
	for _, e := range edits {
		if locate(lowered, tokens, strings.ToLower(e.Original)) {
			verified = append(verified, e)
		}
	}
	return verified
}

// locate reports whether phrase appears in the input, either as an exact
// substring or as a token window within locateThreshold similarity. Both
// sides are already lowercased.
func locate(input string, tokens []string, phrase string) bool {
	if strings.Contains(input, phrase) {
		return true
	}

	n := len(strings.Fields(phrase))
	if n == 0 || n > len(tokens) {
		return false
	}

	for i := 0; i+n <= len(tokens); i++ {
		window := strings.Join(tokens[i:i+n], " ")
		if matchr.JaroWinkler(window, phrase, false) >= locateThreshold {
			return true
		}
	}
	return false
}
