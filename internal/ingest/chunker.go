package ingest

import (
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	// Retrieval works on ~paragraph-sized passages. 500/50 keeps a chunk small
	// enough for precise similarity while the overlap preserves sentences cut
	// at a boundary.
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split cuts text into chunks of at most size runes with the configured
// overlap, snapping cut points back to whitespace when one is nearby.
func (c *Chunker) Split(input string) []string {
	runes := []rune(strings.TrimSpace(input))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.size {
		return []string{string(runes)}
	}
	var chunks []string
	step := c.size - c.overlap
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = snapToBoundary(runes, start, end)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		step = end - start - c.overlap
		if step <= 0 {
			step = 1
		}
	}
	return chunks
}

// snapToBoundary walks back from end to the nearest whitespace so words are
// never split; gives up after 15% of the chunk and cuts hard.
func snapToBoundary(runes []rune, start, end int) int {
	limit := end - (end-start)*15/100
	for i := end; i > limit; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

// SplitMarkdown breaks a markdown document into heading-delimited sections so
// a chunk never straddles two topics. Level 1 and 2 headings start a new
// section; the heading text stays with its section for embedding context.
func SplitMarkdown(markdown string) []string {
	md := goldmark.New()
	source := []byte(markdown)
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var sections []string
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		section := strings.TrimSpace(strings.Join(current, "\n\n"))
		if section != "" {
			sections = append(sections, section)
		}
		current = nil
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if heading, ok := node.(*ast.Heading); ok && heading.Level <= 2 {
			flush()
		}
		if txt := extractText(node, source); txt != "" {
			current = append(current, txt)
		}
	}
	flush()
	if len(sections) == 0 {
		trimmed := strings.TrimSpace(markdown)
		if trimmed != "" {
			sections = append(sections, trimmed)
		}
	}
	return sections
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.FencedCodeBlock:
			for i := 0; i < v.Lines().Len(); i++ {
				line := v.Lines().At(i)
				sb.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
