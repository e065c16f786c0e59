package ingest

import (
	"context"
	"fmt"
	"strings"
)

// TextExtractor passes plain-text files through unchanged.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

func (e *TextExtractor) Extensions() []string { return []string{".txt", ".md"} }

func (e *TextExtractor) Extract(_ context.Context, data []byte, source string) ([]Document, error) {
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty file: %s", source)
	}
	return []Document{{
		ID:     newDocID(),
		Source: source,
		Text:   text,
	}}, nil
}
