// Package splitter turns raw document text into ordered, bounded,
// overlapping chunks ready for embedding.
package splitter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hagwonlab/studyindex/internal/token"
)

const (
	// DefaultMaxTokens is the chunk token budget when none is configured.
	DefaultMaxTokens = 512

	// DefaultOverlapTokens is the cross-chunk overlap when none is configured.
	DefaultOverlapTokens = 50
)

var ErrInvalidConfig = errors.New("invalid chunking config")

// DefaultProblemPattern recognizes problem/question boundaries in Korean and
// English educational material: "문제 3", "3번", "3.", "3)", "Q3." at the
// start of a line. Callers with a different corpus supply their own pattern.
var DefaultProblemPattern = regexp.MustCompile(`(?m)^[ \t]*(?:문제\s*\d+|\d+\s*번|[Qq]\s*\d+\s*[.)]?|\d+\s*[.)])`)

// Config controls how Split segments and packs text.
type Config struct {
	// MaxTokens is the per-chunk token budget. Required, must be positive.
	MaxTokens int

	// OverlapTokens is the size of the overlap region prefixed to every
	// chunk after the first. Must be non-negative and below MaxTokens.
	OverlapTokens int

	// PreserveParagraphs segments on blank-line-delimited paragraphs.
	PreserveParagraphs bool

	// SplitByProblems segments on problem boundary markers before any
	// other strategy. Takes precedence over MarkdownSections.
	SplitByProblems bool

	// MarkdownSections segments on markdown heading boundaries. Useful
	// for documents that were converted to markdown during extraction.
	MarkdownSections bool

	// ProblemPattern overrides DefaultProblemPattern when SplitByProblems
	// is set.
	ProblemPattern *regexp.Regexp
}

// Validate reports whether the config is usable.
func (c Config) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: maxTokens must be positive, got %d", ErrInvalidConfig, c.MaxTokens)
	}
	if c.OverlapTokens < 0 {
		return fmt.Errorf("%w: overlapTokens must be non-negative, got %d", ErrInvalidConfig, c.OverlapTokens)
	}
	if c.OverlapTokens >= c.MaxTokens {
		return fmt.Errorf("%w: overlapTokens (%d) must be smaller than maxTokens (%d)",
			ErrInvalidConfig, c.OverlapTokens, c.MaxTokens)
	}
	return nil
}

// Split breaks text into an ordered list of chunk strings.
//
// Segmentation strategy is chosen by config: problem boundaries, then
// markdown sections, then paragraphs, falling back to the whole text.
// Segments are greedily packed up to MaxTokens; a single oversized segment
// is hard-split at token boundaries. Every chunk after the first is
// prefixed with the last OverlapTokens tokens of its predecessor.
//
// Empty input yields an empty list. Input under the budget yields a single
// chunk with no overlap. No chunk is ever empty.
func Split(text string, cfg Config) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	segments := segment(text, cfg)

	// Greedy packing: accumulate segments until the next one would bust
	// the budget, hard-splitting any segment that is oversized on its own.
	var chunks []string
	var current []string
	used := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current = nil
			used = 0
		}
	}

	for _, seg := range segments {
		cost := token.Count(seg)
		if cost > cfg.MaxTokens {
			flush()
			chunks = append(chunks, hardSplit(seg, cfg.MaxTokens)...)
			continue
		}
		if used+cost > cfg.MaxTokens {
			flush()
		}
		current = append(current, seg)
		used += cost
	}
	flush()

	if cfg.OverlapTokens > 0 && len(chunks) > 1 {
		withOverlap := make([]string, len(chunks))
		withOverlap[0] = chunks[0]
		for i := 1; i < len(chunks); i++ {
			tail := token.TailTokens(chunks[i-1], cfg.OverlapTokens)
			if tail == "" {
				withOverlap[i] = chunks[i]
				continue
			}
			withOverlap[i] = tail + "\n" + chunks[i]
		}
		chunks = withOverlap
	}

	return chunks, nil
}

// segment applies the configured segmentation strategy.
func segment(text string, cfg Config) []string {
	switch {
	case cfg.SplitByProblems:
		pattern := cfg.ProblemPattern
		if pattern == nil {
			pattern = DefaultProblemPattern
		}
		return splitAtBoundaries(text, pattern)
	case cfg.MarkdownSections:
		return markdownSections(text)
	case cfg.PreserveParagraphs:
		return paragraphs(text)
	default:
		return []string{text}
	}
}

// splitAtBoundaries cuts text at the start of every pattern match, keeping
// the matched marker with the segment that follows it. Text before the
// first marker becomes its own segment.
func splitAtBoundaries(text string, pattern *regexp.Regexp) []string {
	locs := pattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return paragraphs(text)
	}

	var segs []string
	prev := 0
	for _, loc := range locs {
		if s := strings.TrimSpace(text[prev:loc[0]]); s != "" {
			segs = append(segs, s)
		}
		prev = loc[0]
	}
	if s := strings.TrimSpace(text[prev:]); s != "" {
		segs = append(segs, s)
	}
	return segs
}

// paragraphRE matches blank-line paragraph separators.
var paragraphRE = regexp.MustCompile(`\n[ \t]*\n+`)

// paragraphs splits text on blank lines, dropping empty segments.
func paragraphs(text string) []string {
	parts := paragraphRE.Split(text, -1)
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}

// hardSplit cuts an oversized segment into pieces of at most maxTokens,
// breaking at word boundaries and, for a single word beyond the budget,
// at rune boundaries.
func hardSplit(seg string, maxTokens int) []string {
	words := token.Fields(seg)

	var pieces []string
	var current []string
	used := 0

	flush := func() {
		if len(current) > 0 {
			pieces = append(pieces, strings.Join(current, " "))
			current = nil
			used = 0
		}
	}

	for _, w := range words {
		cost := token.Count(w.Text)
		if cost > maxTokens {
			flush()
			pieces = append(pieces, splitWord(w.Text, maxTokens)...)
			continue
		}
		if used+cost > maxTokens {
			flush()
		}
		current = append(current, w.Text)
		used += cost
	}
	flush()
	return pieces
}

// splitWord cuts a single word into rune-boundary pieces within the budget.
// The token count is monotone in prefix length, so the cut point is found
// by binary search.
func splitWord(word string, maxTokens int) []string {
	var pieces []string
	runes := []rune(word)
	for len(runes) > 0 {
		lo, hi := 1, len(runes)
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if token.Count(string(runes[:mid])) <= maxTokens {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		pieces = append(pieces, string(runes[:lo]))
		runes = runes[lo:]
	}
	return pieces
}
