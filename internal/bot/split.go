package bot

import (
	"strings"
	"unicode/utf8"
)

// messageLimit is the largest chunk the renderer hands to the transport.
// Discord caps plain message content at 2000 characters.
const messageLimit = 2000

// splitMessage breaks text into chunks of at most limit bytes, cutting at the
// last newline before the boundary. A chunk with no newline in range is cut
// hard at the limit, backed off to a rune boundary.
func splitMessage(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit+1], '\n')
		skip := 1
		if cut <= 0 {
			cut = limit
			skip = 0
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut+skip:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
