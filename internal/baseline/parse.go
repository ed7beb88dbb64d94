package baseline

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339}

// recordParser turns string records keyed by a header into Rows.
type recordParser struct {
	header    []string
	dateIdx   int
	playerIdx int
}

func newRecordParser(header []string) (*recordParser, error) {
	p := &recordParser{header: header, dateIdx: -1, playerIdx: -1}
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case ColDate:
			p.dateIdx = i
		case ColPlayer:
			p.playerIdx = i
		}
	}
	if p.dateIdx < 0 || p.playerIdx < 0 {
		return nil, fmt.Errorf("%w: header must contain %s and %s columns", ErrInvalidTable, ColDate, ColPlayer)
	}
	return p, nil
}

func (p *recordParser) date(record []string) (time.Time, error) {
	return parseDate(record[p.dateIdx])
}

// parse builds a Row and feeds the record's categorical values into cats.
func (p *recordParser) parse(record []string, cats categorySet) (Row, error) {
	if len(record) != len(p.header) {
		return Row{}, fmt.Errorf("%w: record has %d fields, header has %d", ErrInvalidTable, len(record), len(p.header))
	}

	date, err := p.date(record)
	if err != nil {
		return Row{}, err
	}

	row := Row{
		Date:        date,
		Player:      strings.TrimSpace(record[p.playerIdx]),
		Categorical: make(map[string]string, len(CategoricalColumns)),
		Numeric:     make(map[string]float64, len(p.header)),
	}

	for i, col := range p.header {
		col = strings.TrimSpace(col)
		if nonFeatureColumns[col] {
			continue
		}
		value := strings.TrimSpace(record[i])

		if isCategorical(col) {
			row.Categorical[col] = value
			cats.add(col, value)
			continue
		}

		f, err := parseNumber(value)
		if err != nil {
			return Row{}, fmt.Errorf("%w: column %s for %s: %v", ErrInvalidTable, col, row.Player, err)
		}
		row.Numeric[col] = f
	}
	return row, nil
}

// collect only feeds categories, for records outside the requested date.
func (p *recordParser) collect(record []string, cats categorySet) {
	for i, col := range p.header {
		col = strings.TrimSpace(col)
		if i < len(record) && isCategorical(col) {
			cats.add(col, strings.TrimSpace(record[i]))
		}
	}
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", ErrInvalidTable, value)
}

// parseNumber reads a numeric cell. Empty cells are missing values.
func parseNumber(value string) (float64, error) {
	switch strings.ToLower(value) {
	case "", "nan", "null", "none":
		return math.NaN(), nil
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}
