package ingest

import (
	"bytes"
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

// SpreadsheetReader reads the first worksheet that carries a recognizable header
type SpreadsheetReader struct{}

// Read implements Reader
func (SpreadsheetReader) Read(ctx context.Context, path string) (*Batch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}
	defer f.Close()

	var lastErr error = ErrEmpty
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "xlsx: context cancelled")
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			lastErr = eris.Wrapf(err, "xlsx: read sheet %q", sheet)
			continue
		}
		batch, err := tableBatch(rows)
		if err == nil {
			return batch, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// LegacySpreadsheetReader handles .xls exports. Many are OOXML workbooks or
// HTML tables saved under the old extension, some are plain delimited text.
type LegacySpreadsheetReader struct{}

// Read implements Reader
func (LegacySpreadsheetReader) Read(ctx context.Context, path string) (*Batch, error) {
	batch, err := SpreadsheetReader{}.Read(ctx, path)
	switch {
	case err == nil:
		return batch, nil
	case eris.Is(err, ErrMissingColumns), eris.Is(err, ErrEmpty):
		// a workbook after all, just not a usable one
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xls: read %s", path)
	}
	if bytes.Contains(bytes.ToLower(data), []byte("<table")) {
		records, err := htmlTableRecords(data)
		if err != nil {
			return nil, eris.Wrapf(err, "xls: %s", path)
		}
		return tableBatch(records)
	}

	records, _, err := DecodeDelimited(data)
	if err != nil {
		return nil, eris.Wrapf(err, "xls: %s", path)
	}
	return tableBatch(records)
}
