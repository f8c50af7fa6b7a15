package splitter

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// mdParser is shared across calls; goldmark parsers are safe for
// concurrent use.
var mdParser = goldmark.New(
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// markdownSections segments markdown text at H1 and H2 boundaries.
// Content before the first heading forms its own segment. Text with no
// headings (or that fails to parse as structured markdown) falls back to
// paragraph segmentation.
func markdownSections(input string) []string {
	source := []byte(input)
	reader := text.NewReader(source)
	doc := mdParser.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil || len(tree.Items) == 0 {
		return paragraphs(input)
	}

	// Map every split-level heading to its byte offset in the source.
	var offsets []int
	collectHeadingOffsets(doc, source, tree.Items, &offsets)
	if len(offsets) == 0 {
		return paragraphs(input)
	}
	sort.Ints(offsets)

	var segs []string
	prev := 0
	for _, off := range offsets {
		if s := strings.TrimSpace(input[prev:off]); s != "" {
			segs = append(segs, s)
		}
		prev = off
	}
	if s := strings.TrimSpace(input[prev:]); s != "" {
		segs = append(segs, s)
	}
	return segs
}

// collectHeadingOffsets walks TOC items recursively and records the source
// offset of each heading's line. Heading segments start after the ATX
// marker, so the offset is rewound to the start of the line.
func collectHeadingOffsets(doc ast.Node, source []byte, items toc.Items, offsets *[]int) {
	for _, item := range items {
		if node := findHeadingByID(doc, string(item.ID)); node != nil && node.Lines().Len() > 0 {
			off := node.Lines().At(0).Start
			for off > 0 && source[off-1] != '\n' {
				off--
			}
			*offsets = append(*offsets, off)
		}
		if len(item.Items) > 0 {
			collectHeadingOffsets(doc, source, item.Items, offsets)
		}
	}
}

// findHeadingByID locates a heading node by its auto-generated ID.
func findHeadingByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			headingID, ok := n.AttributeString("id")
			if ok && string(headingID.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}
