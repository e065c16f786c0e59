package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVExtractor emits one document per data row. Row text is rendered as
// "header: value" lines so column names survive into the retrieval context.
type CSVExtractor struct{}

func NewCSVExtractor() *CSVExtractor { return &CSVExtractor{} }

func (e *CSVExtractor) Extensions() []string { return []string{".csv"} }

func (e *CSVExtractor) Extract(ctx context.Context, data []byte, source string) ([]Document, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header from %s: %w", source, err)
	}

	var docs []Document
	row := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d from %s: %w", row+1, source, err)
		}
		row++

		text := renderRow(header, record)
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, Document{
			ID:     newDocID(),
			Source: source,
			Text:   text,
			Row:    row,
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no data rows in %s", source)
	}
	return docs, nil
}

func renderRow(header, record []string) string {
	var b strings.Builder
	for i, value := range record {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			b.WriteString(strings.TrimSpace(header[i]))
			b.WriteString(": ")
		}
		b.WriteString(strings.TrimSpace(value))
	}
	return b.String()
}
