package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"pdf-qa-service/internal/logger"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts plain text from PDF files page by page. A page that
// fails to decode is skipped; the extraction only fails when no page yields
// any text at all.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

func (e *PDFExtractor) Extensions() []string { return []string{".pdf"} }

func (e *PDFExtractor) Extract(ctx context.Context, data []byte, source string) ([]Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", source, err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()
	extractedPages := 0

	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("failed to extract PDF page", "source", source, "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		if textBuilder.Len() > 0 {
			textBuilder.WriteString("\n")
		}
		textBuilder.WriteString(text)
		extractedPages++
	}

	full := textBuilder.String()
	if strings.TrimSpace(full) == "" {
		return nil, fmt.Errorf("no text extracted from %s (%d pages)", source, pages)
	}

	return []Document{{
		ID:     newDocID(),
		Source: source,
		Text:   full,
		Pages:  pages,
	}}, nil
}
