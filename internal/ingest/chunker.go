package ingest

import (
	"fmt"
	"strings"
	"unicode"
)

// Chunk splits normalized text into ordered segments of at most maxChars
// runes using boundary-priority splitting: prefer the last sentence end
// within the look-back window, then the last word boundary, then a forced
// cut. Only the forced cut (a single token longer than maxChars) may split
// mid-word. Empty input yields zero chunks.
func Chunk(text string, maxChars int) ([]string, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("chunk size must be a positive integer, got %d", maxChars)
	}
	rest := []rune(strings.TrimSpace(text))
	if len(rest) == 0 {
		return nil, nil
	}
	var chunks []string
	for len(rest) > 0 {
		if len(rest) <= maxChars {
			chunks = append(chunks, string(rest))
			break
		}
		cut := sentenceCut(rest, maxChars)
		if cut < 0 {
			cut = wordCut(rest, maxChars)
		}
		if cut < 0 {
			cut = maxChars
		}
		chunk := strings.TrimSpace(string(rest[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		rest = []rune(strings.TrimSpace(string(rest[cut:])))
	}
	return chunks, nil
}

// sentenceCut scans backward from maxChars for sentence-terminating
// punctuation followed by whitespace or end of text. Boundaries that would
// leave the chunk less than half full are rejected so a stray abbreviation
// near the start cannot produce a tiny fragment.
func sentenceCut(runes []rune, maxChars int) int {
	floor := maxChars / 2
	for i := maxChars - 1; i >= floor; i-- {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	return -1
}

// wordCut scans backward from maxChars for the nearest whitespace.
func wordCut(runes []rune, maxChars int) int {
	for i := maxChars; i >= 1; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	}
	return false
}
