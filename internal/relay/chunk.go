package relay

import "unicode/utf8"

// Chunk splits text into consecutive pieces of exactly limit characters,
// the last one possibly shorter. Characters are Unicode code points.
//
// Splitting is positional: a word or the footer may be cut in two. The
// result is never empty and concatenates back to text.
func Chunk(text string, limit int) []string {
	if limit <= 0 {
		panic("relay: chunk limit must be positive")
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0, utf8.RuneCountInString(text)/limit+1)
	start, n := 0, 0
	for i := range text {
		if n == limit {
			chunks = append(chunks, text[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(chunks, text[start:])
}
