package ingest

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	spaceBeforePunct = regexp.MustCompile(`(\w)\s+([.,!?;:])`)
	noSpaceAfterStop = regexp.MustCompile(`([.!?])(\p{Lu})`)
)

// Normalize cleans raw extracted text before chunking. It is deterministic
// and idempotent, and never fails: the worst case is an empty string, which
// the caller treats as "no extractable content".
func Normalize(raw string) string {
	text := stripSeparatorRuns(raw)
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1$2")
	text = noSpaceAfterStop.ReplaceAllString(text, "$1 $2")
	text = dropArtifactTokens(text)
	return strings.TrimSpace(text)
}

// stripSeparatorRuns removes decorative runs of three or more repeated
// punctuation characters ("-----", "....", "====="), a common OCR and
// PDF-extraction leftover. Go regexps have no backreferences, so this is a
// manual scan.
func stripSeparatorRuns(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(runes); {
		r := runes[i]
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			j := i
			for j < len(runes) && runes[j] == r {
				j++
			}
			if j-i >= 3 {
				sb.WriteRune(' ')
				i = j
				continue
			}
		}
		sb.WriteRune(r)
		i++
	}
	return sb.String()
}

// dropArtifactTokens strips isolated single-character tokens that extraction
// produces from column layouts and hyphenation. Real one-character words
// ("a", "I") and digits are kept.
func dropArtifactTokens(text string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, field := range fields {
		runes := []rune(field)
		if len(runes) == 1 && !keepSingleRune(runes[0]) {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}

func keepSingleRune(r rune) bool {
	if unicode.IsDigit(r) {
		return true
	}
	switch r {
	case 'a', 'A', 'i', 'I':
		return true
	}
	// CJK and similar scripts carry meaning in single runes.
	return r > unicode.MaxLatin1 && unicode.IsLetter(r)
}
