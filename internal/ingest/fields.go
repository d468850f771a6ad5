// Package ingest reads water-quality exports (spreadsheets, delimited text,
// HTML tables, tbody JSON) and loads normalized observations into the store.
package ingest

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
)

// numberInTag matches a numeric token wrapped by markup, e.g. <span>12.34</span>
var numberInTag = regexp.MustCompile(`>([\d.-]+)<`)

// ExtractFloat turns a raw cell into a measurement. It returns nil for the
// placeholder tokens "--" and "*", for empty cells and for anything that does
// not parse as a finite number.
func ExtractFloat(raw any) *float64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return finite(float64(v))
	case int64:
		return finite(float64(v))
	case json.Number:
		return extractString(v.String())
	case string:
		return extractString(v)
	}
	return nil
}

func extractString(s string) *float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "", "--", "*":
		return nil
	}

	if m := numberInTag.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return finite(f)
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// fragmentLayouts accept zero-padded and unpadded month/day
var fragmentLayouts = []string{
	"2006-01-02 15:04",
	"2006-1-2 15:04",
}

// ParseFragment joins a 4-digit year with an "MM-DD HH:MM" fragment.
// The bool is false for an empty or malformed fragment, including
// out-of-range dates such as 02-30.
func ParseFragment(fragment, year string) (time.Time, bool) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || len(year) != 4 {
		return time.Time{}, false
	}
	if _, err := strconv.Atoi(year); err != nil {
		return time.Time{}, false
	}

	full := year + "-" + fragment
	for _, layout := range fragmentLayouts {
		if t, err := time.ParseInLocation(layout, full, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006-1-2 15:04",
	"2006-01-02",
	"2006/01/02",
}

// ParseTimestamp parses a cell that already carries its own year. Spreadsheet
// date serials are accepted too. Naive values are taken as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	// 1 is 1900-01-01, 2958465 is 9999-12-31
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial <= 2958465 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.UTC().Round(time.Second), true
		}
	}
	return time.Time{}, false
}

// StripHTML returns the text content of an HTML fragment with each text node
// trimmed. Plain strings come back trimmed.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	var b strings.Builder
	collectText(doc.Selection, &b)
	return b.String()
}

func collectText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(strings.TrimSpace(c.Text()))
			return
		}
		collectText(c, b)
	})
}
