// Package dataio loads permeation measurements from CSV and Excel files.
package dataio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/timelag/internal/permeation"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("dataio: unsupported file format, expected .csv, .xlsx or .xlsm")

// ColumnMap names the header of each input column. FlowRate is optional.
type ColumnMap struct {
	Time          string `yaml:"time" validate:"required"`
	Concentration string `yaml:"concentration" validate:"required"`
	Pressure      string `yaml:"pressure" validate:"required"`
	Temperature   string `yaml:"temperature" validate:"required"`
	FlowRate      string `yaml:"flow_rate"`
}

func DefaultColumns() ColumnMap {
	return ColumnMap{
		Time:          "t / s",
		Concentration: "y_CO2 / ppm",
		Pressure:      "P_cell / barg",
		Temperature:   "T / °C",
		FlowRate:      "qN2 / ml min^-1",
	}
}

type Loader struct {
	Columns ColumnMap
	// Sheet selects a worksheet by name; empty means the first sheet.
	Sheet string
}

func NewLoader(cols ColumnMap) *Loader {
	return &Loader{Columns: cols}
}

// ExperimentName is the file name without directory or extension.
func ExperimentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load reads a file, choosing the format from its extension.
func (l *Loader) Load(path string) ([]permeation.RawSample, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv", ".xlsx", ".xlsm":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var raw []permeation.RawSample
	if ext == ".csv" {
		raw, err = l.ReadCSV(f)
	} else {
		raw, err = l.ReadXLSX(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}

func (l *Loader) ReadCSV(r io.Reader) ([]permeation.RawSample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return l.parse(rows)
}

func (l *Loader) ReadXLSX(r io.Reader) ([]permeation.RawSample, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := l.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return l.parse(rows)
}

type columnIndex struct {
	time, conc, pressure, temp int
	flow                       int
}

func (l *Loader) index(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	find := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", permeation.ErrMissingColumn, name)
		}
		return i, nil
	}

	var idx columnIndex
	var err error
	if idx.time, err = find(l.Columns.Time); err != nil {
		return idx, err
	}
	if idx.conc, err = find(l.Columns.Concentration); err != nil {
		return idx, err
	}
	if idx.pressure, err = find(l.Columns.Pressure); err != nil {
		return idx, err
	}
	if idx.temp, err = find(l.Columns.Temperature); err != nil {
		return idx, err
	}
	idx.flow = -1
	if i, ok := pos[l.Columns.FlowRate]; ok && l.Columns.FlowRate != "" {
		idx.flow = i
	}
	return idx, nil
}

func (l *Loader) parse(rows [][]string) ([]permeation.RawSample, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", permeation.ErrEmptySeries)
	}
	header := rows[0]
	idx, err := l.index(header)
	if err != nil {
		return nil, err
	}

	out := make([]permeation.RawSample, 0, len(rows)-1)
	for r, row := range rows[1:] {
		if blank(row) {
			continue
		}
		line := r + 2
		cell := func(i int) (float64, error) {
			var s string
			if i < len(row) {
				s = strings.TrimSpace(row[i])
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, fmt.Errorf("row %d, column %q: invalid number %q", line, header[i], s)
			}
			return v, nil
		}

		var s permeation.RawSample
		if s.Time, err = cell(idx.time); err != nil {
			return nil, err
		}
		if s.Concentration, err = cell(idx.conc); err != nil {
			return nil, err
		}
		if s.GaugePressure, err = cell(idx.pressure); err != nil {
			return nil, err
		}
		if s.Temperature, err = cell(idx.temp); err != nil {
			return nil, err
		}
		if idx.flow >= 0 && idx.flow < len(row) && strings.TrimSpace(row[idx.flow]) != "" {
			q, err := cell(idx.flow)
			if err != nil {
				return nil, err
			}
			s.FlowRate = &q
		}
		out = append(out, s)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
