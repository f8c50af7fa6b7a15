// Package metadata derives structural metadata from chunk text: the
// section heading a chunk falls under and the problem number it covers.
// Extraction is deterministic and purely lexical.
package metadata

import (
	"regexp"
	"strings"
)

// headingRE matches the first ATX heading line in a chunk.
var headingRE = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.+?)[ \t]*#*[ \t]*$`)

// problemRE captures the number out of a problem boundary marker at the
// start of a line: "문제 3", "3번", "Q5.", "5.", "5)".
var problemRE = regexp.MustCompile(`(?m)^[ \t]*(?:문제\s*(\d+)|(\d+)\s*번|[Qq]\s*(\d+)\s*[.)]?|(\d+)\s*[.)])`)

// Chunk is the structural metadata extracted from one chunk's text.
type Chunk struct {
	Section       string
	ProblemNumber string
}

// Extract derives section and problem number from chunk text. Fields are
// empty when the text carries no recognizable structure.
func Extract(text string) Chunk {
	return Chunk{
		Section:       section(text),
		ProblemNumber: problemNumber(text),
	}
}

// section returns the text of the first markdown heading in the chunk.
func section(text string) string {
	m := headingRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// problemNumber returns the number of the first problem marker in the
// chunk, as written, without the marker decoration.
func problemNumber(text string) string {
	m := problemRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	for _, group := range m[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}
