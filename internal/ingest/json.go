package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
)

// jsonColumns is the positional layout of a tbody row
var jsonColumns = []Column{
	ColProvince, ColBasin, ColSectionName, ColMonitorTime, ColQualityLevel,
	"temperature", "ph", "dissolved_oxygen", "conductivity", "turbidity",
	"permanganate_index", "ammonia_nitrogen", "total_phosphorus", "total_nitrogen",
	"chlorophyll_a", "algae_density",
	ColStationStatus,
}

// MinJSONFields is the shortest tbody row that is accepted
var MinJSONFields = len(jsonColumns)

type tbodyDocument struct {
	TBody [][]any `json:"tbody"`
}

// JSONReader reads {"tbody": [[...], ...]} exports of fixed-position rows
type JSONReader struct{}

// Read implements Reader
func (JSONReader) Read(ctx context.Context, path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "json: open %s", path)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var doc tbodyDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrapf(ErrUnreadable, "json: decode %s: %v", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "json: context cancelled")
	}

	batch := &Batch{}
	for i, values := range doc.TBody {
		if blankValues(values) {
			continue
		}
		if len(values) < MinJSONFields {
			batch.Short = append(batch.Short, i+1)
			continue
		}
		batch.Rows = append(batch.Rows, positionalRow(i+1, values))
	}
	if len(batch.Rows) == 0 && len(batch.Short) == 0 {
		return nil, ErrEmpty
	}
	return batch, nil
}

// positionalRow is the only place that knows the tbody field order
func positionalRow(line int, values []any) RawRow {
	row := RawRow{Line: line, Cells: make(map[Column]string, len(jsonColumns))}
	for i, c := range jsonColumns {
		row.Cells[c] = cellString(values[i])
	}
	return row
}

func blankValues(values []any) bool {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = cellString(v)
	}
	return blank(cells)
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	}
	return fmt.Sprint(v)
}
