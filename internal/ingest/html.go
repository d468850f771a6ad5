package ingest

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// htmlTableRecords extracts the cell text of the first table that has rows
func htmlTableRecords(data []byte) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "html: parse document")
	}

	var records [][]string
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var rec []string
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				rec = append(rec, strings.TrimSpace(cell.Text()))
			})
			records = append(records, rec)
		})
		return len(records) == 0
	})

	if len(records) == 0 {
		return nil, ErrUnreadable
	}
	return records, nil
}
