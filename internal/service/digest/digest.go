package digest

import (
	"strings"
	"unicode/utf8"
)

const (
	SummaryMaxChars  = 200
	SummaryMaxLines  = 5
	SummaryEllipsis  = "..."
	DefaultChunkSize = 1000
	charsPerToken    = 4
)

// Summarize joins the first non-blank lines of text with single spaces and
// truncates the result to SummaryMaxChars characters, appending an ellipsis
// when it had to cut.
func Summarize(text string) string {
	lines := make([]string, 0, SummaryMaxLines)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == SummaryMaxLines {
			break
		}
	}
	summary := strings.Join(lines, " ")
	if utf8.RuneCountInString(summary) <= SummaryMaxChars {
		return summary
	}
	return string([]rune(summary)[:SummaryMaxChars]) + SummaryEllipsis
}

// Chunk packs the whitespace-separated words of text greedily into chunks of at
// most size characters. A single word longer than size forms its own chunk.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var (
		chunks  []string
		current strings.Builder
		length  int
	)
	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)
		if length > 0 && length+1+wordLen > size {
			chunks = append(chunks, current.String())
			current.Reset()
			length = 0
		}
		if length > 0 {
			current.WriteByte(' ')
			length++
		}
		current.WriteString(word)
		length += wordLen
	}
	if length > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// EstimateTokens approximates the LLM token count of s as ceil(chars/4).
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + charsPerToken - 1) / charsPerToken
}
