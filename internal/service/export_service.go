package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/xuri/excelize/v2"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
)

// Export formats
const (
	FormatCSV   = "csv"
	FormatExcel = "excel"
)

var (
	// ErrUnsupportedFormat is returned for an export format other than csv or excel
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrNoData is returned when the filter matches no records
	ErrNoData = errors.New("no data found")
)

// ExportColumns is the fixed column order of every export
var ExportColumns = append(append([]string{
	"id", "province", "basin", "section_name", "monitor_time", "quality_level",
}, model.NumericFields...), "station_status")

const exportSheet = "水质数据"

// ExportFile is a rendered export ready to be sent or written
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService serializes filtered records
type ExportService interface {
	Export(ctx context.Context, filter repository.WaterQualityFilter, format string) (*ExportFile, error)
}

type exportService struct {
	repo  repository.WaterQualityRepository
	clock clockwork.Clock
}

// NewExportService creates a new export service
func NewExportService(repo repository.WaterQualityRepository, clock clockwork.Clock) ExportService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &exportService{repo: repo, clock: clock}
}

func (s *exportService) Export(ctx context.Context, filter repository.WaterQualityFilter, format string) (*ExportFile, error) {
	if format != FormatCSV && format != FormatExcel {
		return nil, ErrUnsupportedFormat
	}

	records, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	stamp := s.clock.Now().Format("20060102_150405")
	if format == FormatCSV {
		data, err := renderCSV(records)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Name:        fmt.Sprintf("water_quality_data_%s.csv", stamp),
			ContentType: "text/csv; charset=utf-8",
			Data:        data,
			Rows:        len(records),
		}, nil
	}

	data, err := renderExcel(records)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		Name:        fmt.Sprintf("water_quality_data_%s.xlsx", stamp),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
		Rows:        len(records),
	}, nil
}

// renderCSV writes UTF-8 with a byte order mark so spreadsheet apps detect the encoding
func renderCSV(records []model.WaterQuality) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	if err := w.Write(ExportColumns); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(ExportColumns))
	for i := range records {
		for j, v := range exportValues(&records[i]) {
			row[j] = formatCell(v)
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row %d: %w", records[i].ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func renderExcel(records []model.WaterQuality) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet writer: %w", err)
	}

	header := make([]interface{}, len(ExportColumns))
	for i, c := range ExportColumns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, exportValues(&records[i])); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", records[i].ID, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// exportValues lists a record's cells in ExportColumns order; absent values are nil
func exportValues(rec *model.WaterQuality) []interface{} {
	values := make([]interface{}, 0, len(ExportColumns))
	values = append(values,
		rec.ID,
		rec.Province,
		rec.Basin,
		rec.SectionName,
		rec.MonitorTime.UTC().Format("2006-01-02 15:04:05"),
	)
	if rec.QualityLevel != nil {
		values = append(values, *rec.QualityLevel)
	} else {
		values = append(values, nil)
	}
	for _, field := range model.NumericFields {
		if v := rec.Value(field); v != nil {
			values = append(values, *v)
		} else {
			values = append(values, nil)
		}
	}
	return append(values, rec.StationStatus)
}

func formatCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
