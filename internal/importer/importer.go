// Package importer reads farmer map locations from CSV or XLSX sheets with
// a header row naming the columns state, latitude, longitude, crops and
// farmerId. Column order does not matter.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"

	"github.com/flicky/farm-market-api/internal/model"
)

var (
	ErrMissingHeader     = errors.New("missing header row")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Result holds the accepted rows and how many data rows were rejected.
type Result struct {
	Locations []model.FarmerLocation
	Skipped   int
}

// ParseFile picks the parser from the file extension.
func ParseFile(path string) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		return ParseCSV(f)
	case ".xlsx":
		xf, err := xlsx.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		return parseWorkbook(xf)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func ParseCSV(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return parseRecords(records)
}

func ParseXLSX(r io.ReaderAt, size int64) (*Result, error) {
	xf, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	return parseWorkbook(xf)
}

// parseWorkbook reads the first sheet only.
func parseWorkbook(xf *xlsx.File) (*Result, error) {
	if len(xf.Sheets) == 0 {
		return nil, ErrMissingHeader
	}
	sheet := xf.Sheets[0]
	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			records = append(records, nil)
			continue
		}
		rec := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			rec[i] = cell.String()
		}
		records = append(records, rec)
	}
	return parseRecords(records)
}

func parseRecords(records [][]string) (*Result, error) {
	if len(records) == 0 {
		return nil, ErrMissingHeader
	}

	cols := make(map[string]int)
	for i, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"latitude", "longitude", "farmerid"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: no %q column", ErrMissingHeader, required)
		}
	}

	get := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	res := &Result{}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		loc, ok := toLocation(
			get(rec, "state"), get(rec, "latitude"), get(rec, "longitude"),
			get(rec, "crops"), get(rec, "farmerid"),
		)
		if !ok {
			res.Skipped++
			continue
		}
		res.Locations = append(res.Locations, loc)
	}
	return res, nil
}

// toLocation rejects rows without coordinates or farmer id, and rows whose
// coordinates are not numbers in range. The negated range checks also catch
// NaN, which ParseFloat accepts.
func toLocation(state, lat, lng, crops, farmerID string) (model.FarmerLocation, bool) {
	if lat == "" || lng == "" || farmerID == "" {
		return model.FarmerLocation{}, false
	}
	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil || !(latitude >= -90 && latitude <= 90) {
		return model.FarmerLocation{}, false
	}
	longitude, err := strconv.ParseFloat(lng, 64)
	if err != nil || !(longitude >= -180 && longitude <= 180) {
		return model.FarmerLocation{}, false
	}
	return model.FarmerLocation{
		FarmerID:  farmerID,
		State:     state,
		Latitude:  latitude,
		Longitude: longitude,
		Crops:     crops,
	}, true
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
