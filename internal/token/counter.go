// Package token provides a cheap, deterministic token count approximation
// used for chunk budgeting. It never calls a model tokenizer.
package token

import (
	"strings"
	"unicode"
)

// Count approximates the number of model tokens in text.
//
// Latin-script text averages roughly four characters per token, while
// Hangul/Han/Kana runes tokenize close to one token per rune. The heuristic
// counts CJK runes individually and divides the remaining rune count by four,
// rounding up. Whitespace is ignored.
func Count(text string) int {
	if text == "" {
		return 0
	}

	cjk := 0
	other := 0
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			// skip
		case isCJK(r):
			cjk++
		default:
			other++
		}
	}

	return cjk + (other+3)/4
}

// Truncate returns the longest prefix of text whose token count does not
// exceed maxTokens, cut at a word boundary. The result is a byte prefix of
// the input, so newlines and whitespace runs before the cut survive intact.
// It never fails: a non-positive budget yields the empty string, and a
// single word over budget is cut at the exact rune where the budget runs
// out.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 || text == "" {
		return ""
	}
	if Count(text) <= maxTokens {
		return text
	}

	words := Fields(text)
	used := 0
	end := 0
	for i, w := range words {
		cost := Count(w.Text)
		if used+cost > maxTokens {
			if i == 0 {
				// Single oversized word: cut mid-word at the token budget.
				return text[:w.Offset+len(cutRunes(w.Text, maxTokens))]
			}
			break
		}
		used += cost
		end = w.Offset + len(w.Text)
	}
	return text[:end]
}

// TailTokens returns the shortest suffix of text, starting at a word
// boundary, whose token count is at most tokens. Used to build chunk
// overlap regions.
func TailTokens(text string, tokens int) string {
	if tokens <= 0 || text == "" {
		return ""
	}

	words := Fields(text)
	used := 0
	start := len(words)
	for i := len(words) - 1; i >= 0; i-- {
		cost := Count(words[i].Text)
		if used+cost > tokens {
			break
		}
		used += cost
		start = i
	}
	if start == len(words) {
		return ""
	}

	parts := make([]string, 0, len(words)-start)
	for _, w := range words[start:] {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

// Word is a whitespace-delimited word with its byte offset in the source.
type Word struct {
	Text   string
	Offset int
}

// Fields splits text on whitespace, retaining byte offsets.
func Fields(text string) []Word {
	var words []Word
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, Word{Text: text[start:i], Offset: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, Word{Text: text[start:], Offset: start})
	}
	return words
}

// cutRunes cuts word so that its token count is at most budget.
func cutRunes(word string, budget int) string {
	runes := []rune(word)
	for n := len(runes) - 1; n > 0; n-- {
		candidate := string(runes[:n])
		if Count(candidate) <= budget {
			return candidate
		}
	}
	return string(runes[:1])
}

// isCJK reports whether r belongs to a script that tokenizes near one
// token per rune (Hangul, Han, Hiragana, Katakana).
func isCJK(r rune) bool {
	return unicode.Is(unicode.Hangul, r) ||
		unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r)
}
