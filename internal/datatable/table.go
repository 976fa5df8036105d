// Package datatable reads and writes the numeric CSV tables used as scenario
// inputs (weight-at-age, age-length keys) and run outputs (time series).
package datatable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var (
	ErrMissingColumn = errors.New("table column missing")
	ErrBadRow        = errors.New("table row invalid")
)

// Table is a header plus rows of numbers. Every row has len(Header) values.
type Table struct {
	Header []string
	Rows   [][]float64
}

// ReadCSV parses a CSV table with a header line. Blank lines are skipped and
// header names are lower-cased.
func ReadCSV(in io.Reader) (Table, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("read table csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	table := Table{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read table csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if blankRecord(record) {
			continue
		}
		if len(record) != len(header) {
			return Table{}, fmt.Errorf("line %d has %d fields, header has %d: %w", line, len(record), len(header), ErrBadRow)
		}
		row := make([]float64, len(record))
		for i, raw := range record {
			value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return Table{}, fmt.Errorf("parse line %d column %q: %w", line, header[i], err)
			}
			row[i] = value
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func ReadCSVFile(path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return Table{}, fmt.Errorf("table file path is required")
	}
	file, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer file.Close()
	return ReadCSV(file)
}

// Column returns the values of the named column.
func (t Table) Column(name string) ([]float64, error) {
	idx := t.columnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%q: %w", name, ErrMissingColumn)
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

func (t Table) columnIndex(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// WeightAtAge extracts the weight of each requested age from a table with
// "age" and "weight" columns. Ages are matched exactly.
func WeightAtAge(t Table, ages []float64) ([]float64, error) {
	tableAges, err := t.Column("age")
	if err != nil {
		return nil, err
	}
	weights, err := t.Column("weight")
	if err != nil {
		return nil, err
	}
	byAge := make(map[float64]float64, len(tableAges))
	for i, age := range tableAges {
		byAge[age] = weights[i]
	}
	out := make([]float64, len(ages))
	for i, age := range ages {
		w, ok := byAge[age]
		if !ok {
			return nil, fmt.Errorf("weight for age %g: %w", age, ErrBadRow)
		}
		out[i] = w
	}
	return out, nil
}

// AgeLengthKey flattens an age-by-length table into a row-major [age][length]
// matrix in the order of ages. The table has an "age" column; every other
// column is a length bin. Each row must sum to one within 1e-6.
func AgeLengthKey(t Table, ages []float64) ([]float64, int, error) {
	ageCol := t.columnIndex("age")
	if ageCol < 0 {
		return nil, 0, fmt.Errorf("%q: %w", "age", ErrMissingColumn)
	}
	nLengths := len(t.Header) - 1
	if nLengths < 1 {
		return nil, 0, fmt.Errorf("age-length key has no length bins: %w", ErrMissingColumn)
	}
	rows := make(map[float64][]float64, len(t.Rows))
	for _, row := range t.Rows {
		bins := make([]float64, 0, nLengths)
		bins = append(bins, row[:ageCol]...)
		bins = append(bins, row[ageCol+1:]...)
		rows[row[ageCol]] = bins
	}

	out := make([]float64, 0, len(ages)*nLengths)
	for _, age := range ages {
		bins, ok := rows[age]
		if !ok {
			return nil, 0, fmt.Errorf("age-length key for age %g: %w", age, ErrBadRow)
		}
		total := 0.0
		for _, v := range bins {
			total += v
		}
		if math.Abs(total-1) > 1e-6 {
			return nil, 0, fmt.Errorf("age-length key for age %g sums to %g: %w", age, total, ErrBadRow)
		}
		out = append(out, bins...)
	}
	return out, nLengths, nil
}

// WriteCSV writes t with full float precision.
func WriteCSV(out io.Writer, t Table) error {
	writer := csv.NewWriter(out)
	if err := writer.Write(t.Header); err != nil {
		return err
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(record[:len(row)]); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
