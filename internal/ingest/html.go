package ingest

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLExtractor strips markup, scripts and styles and keeps the visible
// text of an HTML page as a single document.
type HTMLExtractor struct {
	blankLines *regexp.Regexp
}

func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{
		blankLines: regexp.MustCompile(`\n{3,}`),
	}
}

func (e *HTMLExtractor) Extensions() []string { return []string{".html", ".htm"} }

func (e *HTMLExtractor) Extract(ctx context.Context, data []byte, source string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML %s: %w", source, err)
	}

	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		b.WriteString(sel.Text())
	})
	text := b.String()
	if strings.TrimSpace(text) == "" {
		// documents without a body tag
		text = doc.Text()
	}

	// collapse per-line whitespace and runs of blank lines
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	text = e.blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	text = strings.TrimSpace(text)

	if text == "" {
		return nil, fmt.Errorf("no visible text in %s", source)
	}

	return []Document{{
		ID:     newDocID(),
		Source: source,
		Text:   text,
	}}, nil
}
