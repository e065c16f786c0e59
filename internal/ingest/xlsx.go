package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExtractor emits one document per spreadsheet row, across all sheets.
// The first row of each sheet is treated as the header.
type XLSXExtractor struct{}

func NewXLSXExtractor() *XLSXExtractor { return &XLSXExtractor{} }

func (e *XLSXExtractor) Extensions() []string { return []string{".xlsx"} }

func (e *XLSXExtractor) Extract(ctx context.Context, data []byte, source string) ([]Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", source, err)
	}
	defer f.Close()

	var docs []Document
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q in %s: %w", sheet, source, err)
		}
		if len(rows) < 2 {
			continue
		}

		header := rows[0]
		for i, record := range rows[1:] {
			text := renderRow(header, record)
			if strings.TrimSpace(text) == "" {
				continue
			}
			docs = append(docs, Document{
				ID:     newDocID(),
				Source: fmt.Sprintf("%s#%s", source, sheet),
				Text:   text,
				Row:    i + 2,
			})
		}
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no data rows in %s", source)
	}
	return docs, nil
}
