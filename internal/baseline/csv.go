package baseline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// CSVSource reads the baseline table from a CSV file on every Load.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source for the CSV file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Load reads the whole file, keeps the rows of date and builds the
// category dictionary from every row.
func (s *CSVSource) Load(ctx context.Context, date time.Time) (*Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open baseline table: %w", err)
	}
	defer f.Close()

	return readCSV(ctx, f, date)
}

// Close is a no-op; the file is reopened on each Load.
func (s *CSVSource) Close() error {
	return nil
}

func readCSV(ctx context.Context, r io.Reader, date time.Time) (*Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInvalidTable, err)
	}
	parser, err := newRecordParser(header)
	if err != nil {
		return nil, err
	}

	cats := make(categorySet)
	var rows []Row
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidTable, line, err)
		}

		recordDate, err := parser.date(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !SameDay(recordDate, date) {
			parser.collect(record, cats)
			continue
		}

		row, err := parser.parse(record, cats)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	return NewTable(date, rows, cats.sorted()), nil
}
