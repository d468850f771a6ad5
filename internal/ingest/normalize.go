package ingest

import (
	"strings"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"
)

// Column is a canonical field name of a water-quality row
type Column string

// Canonical columns. Measurement columns share their names with model.NumericFields.
const (
	ColProvince      Column = "province"
	ColBasin         Column = "basin"
	ColSectionName   Column = "section_name"
	ColMonitorTime   Column = "monitor_time"
	ColQualityLevel  Column = "quality_level"
	ColStationStatus Column = "station_status"
)

// headerAliases maps normalized source headers to canonical columns
var headerAliases = map[string]Column{
	"省份":   ColProvince,
	"省":    ColProvince,
	"流域":   ColBasin,
	"断面名称": ColSectionName,
	"断面":   ColSectionName,
	"站点名称": ColSectionName,
	"监测时间": ColMonitorTime,
	"时间":   ColMonitorTime,
	"水质类别": ColQualityLevel,
	"站点情况": ColStationStatus,
	"站点状态": ColStationStatus,

	"水温":     "temperature",
	"ph":     "ph",
	"溶解氧":    "dissolved_oxygen",
	"电导率":    "conductivity",
	"浊度":     "turbidity",
	"高锰酸盐指数": "permanganate_index",
	"氨氮":     "ammonia_nitrogen",
	"总磷":     "total_phosphorus",
	"总氮":     "total_nitrogen",
	"叶绿素α":   "chlorophyll_a",
	"叶绿素a":   "chlorophyll_a",
	"藻密度":    "algae_density",

	"section":      ColSectionName,
	"section_name": ColSectionName,
	"monitor_time": ColMonitorTime,
	"time":         ColMonitorTime,
	"quality":      ColQualityLevel,
	"water_temp":   "temperature",
	"do":           "dissolved_oxygen",
	"codmn":        "permanganate_index",
	"nh3n":         "ammonia_nitrogen",
	"tp":           "total_phosphorus",
	"tn":           "total_nitrogen",
	"status":       ColStationStatus,
}

func init() {
	// canonical names always map to themselves
	for _, c := range []Column{ColProvince, ColBasin, ColSectionName, ColMonitorTime, ColQualityLevel, ColStationStatus} {
		headerAliases[string(c)] = c
	}
	for _, f := range model.NumericFields {
		headerAliases[f] = Column(f)
	}
}

// normalizeHeader trims, drops a parenthesized unit suffix and lowercases
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
	if i := strings.IndexAny(h, "(（"); i > 0 {
		h = h[:i]
	}
	return strings.ToLower(strings.TrimSpace(h))
}

// MapHeader resolves source headers to canonical column positions.
// Unknown headers are ignored and the first occurrence of a column wins.
func MapHeader(header []string) map[Column]int {
	cols := make(map[Column]int)
	for i, h := range header {
		c, ok := headerAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := cols[c]; !seen {
			cols[c] = i
		}
	}
	return cols
}

// hasGroupingColumns reports whether province and basin are both mapped
func hasGroupingColumns(cols map[Column]int) bool {
	_, okP := cols[ColProvince]
	_, okB := cols[ColBasin]
	return okP && okB
}

// RawRow is one source row keyed by canonical column
type RawRow struct {
	Line  int
	Cells map[Column]string
}

// Get returns the trimmed cell for c, empty when absent
func (r RawRow) Get(c Column) string {
	return strings.TrimSpace(r.Cells[c])
}

// missingGrouping reports whether province or basin is absent or blank
func (r RawRow) missingGrouping() bool {
	return r.Get(ColProvince) == "" || r.Get(ColBasin) == ""
}

// rowFromCells builds a RawRow from a positional record and a header mapping
func rowFromCells(line int, cols map[Column]int, cells []string) RawRow {
	row := RawRow{Line: line, Cells: make(map[Column]string, len(cols))}
	for c, i := range cols {
		if i < len(cells) {
			row.Cells[c] = cells[i]
		} else {
			row.Cells[c] = ""
		}
	}
	return row
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Reason explains why a row was not stored
type Reason string

// Rejection reasons
const (
	ReasonWhitelist    Reason = "whitelist"
	ReasonTime         Reason = "time"
	ReasonShortRow     Reason = "short_row"
	ReasonMissingField Reason = "missing_field"
)

// RowResult is the outcome of normalizing one row: a record, or the reason there is none
type RowResult struct {
	Record *model.WaterQuality
	Reason Reason
}

// OK reports whether the row produced a record
func (r RowResult) OK() bool {
	return r.Record != nil
}

// Normalize maps a raw row onto a WaterQuality record. year supplies the
// year for "MM-DD HH:MM" time fragments and may be empty when the source
// carries full timestamps. A bad measurement only nulls that field; rows are
// rejected for a missing province or basin or an unusable time.
func Normalize(row RawRow, year string) RowResult {
	if row.missingGrouping() {
		return RowResult{Reason: ReasonMissingField}
	}

	monitorTime, ok := ParseTimestamp(row.Get(ColMonitorTime))
	if !ok {
		monitorTime, ok = ParseFragment(row.Get(ColMonitorTime), year)
	}
	if !ok {
		return RowResult{Reason: ReasonTime}
	}

	rec := &model.WaterQuality{
		Province:      row.Get(ColProvince),
		Basin:         row.Get(ColBasin),
		SectionName:   StripHTML(row.Cells[ColSectionName]),
		MonitorTime:   monitorTime,
		QualityLevel:  NormalizeQualityLevel(StripHTML(row.Cells[ColQualityLevel])),
		StationStatus: StripHTML(row.Cells[ColStationStatus]),
	}
	for _, f := range model.NumericFields {
		*rec.Measurement(f) = ExtractFloat(row.Cells[Column(f)])
	}
	return RowResult{Record: rec}
}

// QualityLevels are the accepted grades, best first
var QualityLevels = []string{"I", "II", "III", "IV", "V", "劣V"}

var romanReplacer = strings.NewReplacer(
	"Ⅰ", "I", "Ⅱ", "II", "Ⅲ", "III", "Ⅳ", "IV", "Ⅴ", "V",
	"ⅰ", "I", "ⅱ", "II", "ⅲ", "III", "ⅳ", "IV", "ⅴ", "V",
)

// NormalizeQualityLevel maps a source grade (full-width numerals, "类" suffix)
// to one of QualityLevels, or nil when it is not a known grade.
func NormalizeQualityLevel(s string) *string {
	s = romanReplacer.Replace(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "类")
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, l := range QualityLevels {
		if s == l {
			return &l
		}
	}
	return nil
}
