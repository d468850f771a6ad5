package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrUnreadable means no format/encoding combination produced a table
	ErrUnreadable = eris.New("unreadable source file")
	// ErrMissingColumns means the source has no province or basin column
	ErrMissingColumns = eris.New("missing province or basin column")
	// ErrEmpty means the source holds no data rows
	ErrEmpty = eris.New("no data rows")
)

// Batch is everything a reader extracted from one file
type Batch struct {
	Rows []RawRow
	// Short holds the lines of rows dropped for having fewer fields than required
	Short []int
}

// Reader extracts raw rows from one source file. Readers never modify the file.
type Reader interface {
	Read(ctx context.Context, path string) (*Batch, error)
}

// headerSearchDepth bounds how many leading rows may precede the header (title rows, notes)
const headerSearchDepth = 10

// SupportedExtensions lists the file types a pipeline ingests
var SupportedExtensions = []string{".xlsx", ".xls", ".csv", ".json"}

// ReaderFor picks the reader for a file by its extension, nil when unsupported
func ReaderFor(path string) Reader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return DelimitedReader{}
	case ".xlsx":
		return SpreadsheetReader{}
	case ".xls":
		return LegacySpreadsheetReader{}
	case ".json":
		return JSONReader{}
	}
	return nil
}

// Discover lists supported files under root in lexical order.
// Office lock files ("~$name.xlsx") are ignored.
func Discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), "~$") {
			return nil
		}
		if ReaderFor(path) != nil {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "discover files under %s", root)
	}
	return files, nil
}

var yearPrefix = regexp.MustCompile(`^((?:19|20)\d{2})`)

// YearContext finds the year for time fragments in path: the nearest
// directory between path and root whose name starts with a 4-digit year,
// else the file name itself. Empty when neither carries a year.
func YearContext(root, path string) string {
	root = filepath.Clean(root)
	dir := filepath.Dir(filepath.Clean(path))
	for {
		if m := yearPrefix.FindStringSubmatch(filepath.Base(dir)); m != nil {
			return m[1]
		}
		if dir == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return FileYear(path)
}

// FileYear returns the year a file name starts with, or ""
func FileYear(path string) string {
	if m := yearPrefix.FindStringSubmatch(filepath.Base(path)); m != nil {
		return m[1]
	}
	return ""
}

// tableBatch locates the header among the leading records and turns the
// remaining non-blank records into raw rows.
func tableBatch(records [][]string) (*Batch, error) {
	headerAt := -1
	var cols map[Column]int
	seen := 0
	for i, rec := range records {
		if blank(rec) {
			continue
		}
		if seen++; seen > headerSearchDepth {
			break
		}
		if m := MapHeader(rec); hasGroupingColumns(m) {
			headerAt, cols = i, m
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrMissingColumns
	}

	batch := &Batch{}
	for i := headerAt + 1; i < len(records); i++ {
		if blank(records[i]) {
			continue
		}
		batch.Rows = append(batch.Rows, rowFromCells(i+1, cols, records[i]))
	}
	if len(batch.Rows) == 0 {
		return nil, ErrEmpty
	}
	return batch, nil
}
