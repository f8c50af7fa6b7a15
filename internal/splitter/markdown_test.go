package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownSections_HeadingBoundaries(t *testing.T) {
	input := `# Linear Equations

Introduction to the unit.

## Solving for x

Isolate the variable on one side.

## Word Problems

Translate the sentence into an equation.
`

	segs := markdownSections(input)
	require.Len(t, segs, 3)
	assert.True(t, strings.HasPrefix(segs[0], "# Linear Equations"))
	assert.Contains(t, segs[0], "Introduction to the unit.")
	assert.True(t, strings.HasPrefix(segs[1], "## Solving for x"))
	assert.Contains(t, segs[1], "Isolate the variable")
	assert.True(t, strings.HasPrefix(segs[2], "## Word Problems"))
	assert.Contains(t, segs[2], "Translate the sentence")
}

func TestMarkdownSections_PreambleBeforeFirstHeading(t *testing.T) {
	input := `Preamble text without a heading.

# First Section

Body of the section.
`

	segs := markdownSections(input)
	require.Len(t, segs, 2)
	assert.Equal(t, "Preamble text without a heading.", segs[0])
	assert.True(t, strings.HasPrefix(segs[1], "# First Section"))
}

func TestMarkdownSections_DeepHeadingsNotSplit(t *testing.T) {
	input := `# Top

Intro.

### Subsubsection

Stays with its parent section.
`

	segs := markdownSections(input)
	require.Len(t, segs, 1)
	assert.Contains(t, segs[0], "### Subsubsection")
}

func TestMarkdownSections_NoHeadingsFallsBackToParagraphs(t *testing.T) {
	input := "Paragraph one.\n\nParagraph two."
	segs := markdownSections(input)
	require.Len(t, segs, 2)
	assert.Equal(t, "Paragraph one.", segs[0])
	assert.Equal(t, "Paragraph two.", segs[1])
}

func TestSplit_MarkdownSections(t *testing.T) {
	input := `# Guide

Short intro.

## Part One

Some body text here.

## Part Two

More body text here.
`

	chunks, err := Split(input, Config{MaxTokens: 10, MarkdownSections: true})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Contains(t, chunks[0], "# Guide")
	assert.Contains(t, chunks[1], "## Part One")
	assert.Contains(t, chunks[2], "## Part Two")
}
