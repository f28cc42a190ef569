package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Section is a page-sized slice of extracted text. Page is 1-based for PDFs
// and 0 for formats without page structure.
type Section struct {
	Text string
	Page int
}

// Extract pulls plain text out of an uploaded file. Supported types: pdf, txt,
// md. Markdown keeps heading structure so the splitter can cut on headings.
func Extract(filename string, data []byte) ([]Section, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return []Section{{Text: string(data)}}, nil
	case ".md", ".markdown":
		sections := SplitMarkdown(string(data))
		out := make([]Section, 0, len(sections))
		for _, text := range sections {
			out = append(out, Section{Text: text})
		}
		return out, nil
	case ".pdf":
		return extractPDF(data)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

func extractPDF(data []byte) ([]Section, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	var sections []Section
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		sections = append(sections, Section{Text: text, Page: i})
	}
	return sections, nil
}
