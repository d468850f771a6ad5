package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// textEncoding is one candidate charset for delimited text
type textEncoding struct {
	name string
	enc  encoding.Encoding
}

// textEncodings are tried in order: the UTF-8 family, then the CJK double-byte charsets
var textEncodings = []textEncoding{
	{"utf-8", unicode.UTF8},
	{"utf-8-sig", unicode.UTF8BOM},
	{"gbk", simplifiedchinese.GBK},
	{"gb18030", simplifiedchinese.GB18030},
}

// delimiters are tried in order for each encoding
var delimiters = []rune{',', ';', '\t'}

// DelimitedReader reads CSV-like text of unknown encoding and delimiter
type DelimitedReader struct{}

// Read implements Reader
func (DelimitedReader) Read(ctx context.Context, path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: read %s", path)
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "csv: context cancelled")
	}

	records, _, err := DecodeDelimited(data)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: %s", path)
	}
	return tableBatch(records)
}

// DecodeDelimited probes every encoding/delimiter combination and returns the
// records of the first one yielding more than one column, plus the encoding name.
func DecodeDelimited(data []byte) ([][]string, string, error) {
	for _, te := range textEncodings {
		text, ok := decodeText(te, data)
		if !ok {
			continue
		}
		for _, d := range delimiters {
			records, ok := parseDelimited(text, d)
			if ok {
				return records, te.name, nil
			}
		}
	}
	return nil, "", ErrUnreadable
}

// decodeText converts data to UTF-8, rejecting decodings that needed replacement characters
func decodeText(te textEncoding, data []byte) ([]byte, bool) {
	hasBOM := bytes.HasPrefix(data, []byte("\xef\xbb\xbf"))
	switch te.name {
	case "utf-8":
		if hasBOM || !utf8.Valid(data) {
			return nil, false
		}
		return data, true
	case "utf-8-sig":
		if !hasBOM {
			return nil, false
		}
	}

	out, err := te.enc.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(out) || bytes.ContainsRune(out, utf8.RuneError) {
		return nil, false
	}
	return out, true
}

// parseDelimited splits text on d, succeeding when a leading record has more than one field
func parseDelimited(text []byte, d rune) ([][]string, bool) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = d
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil || len(records) == 0 {
		return nil, false
	}
	for _, rec := range records[:min(len(records), headerSearchDepth)] {
		if len(rec) > 1 {
			return records, true
		}
	}
	return nil, false
}
