package espn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fortuna/halftime/internal/live"
)

// placeholder is what the feed shows for a stat with no data, e.g. "--" for
// a shooting split with no attempts.
const placeholder = "--"

// fieldMapping declares how one feed label becomes canonical columns.
type fieldMapping struct {
	label   string
	columns []string
	derive  func(raw string) ([]int, error)
}

// canonicalFields is the box-score schema. Labels not listed here pass
// through under their own name as plain counts.
var canonicalFields = []fieldMapping{
	{label: "MIN", columns: []string{live.StatMinutes}, derive: parseMinutes},
	{label: "PTS", columns: []string{live.StatPoints}, derive: parseCount},
	{label: "FG", columns: []string{live.StatFieldGoals, live.StatFieldGoalsAtt}, derive: parseMadeAttempted},
	{label: "3PT", columns: []string{live.StatThreesMade, live.StatThreesAtt}, derive: parseMadeAttempted},
	{label: "FT", columns: []string{live.StatFreeThrows, live.StatFreeThrowsAtt}, derive: parseMadeAttempted},
	{label: "REB", columns: []string{"REB"}, derive: parseCount},
	{label: "OREB", columns: []string{"OREB"}, derive: parseCount},
	{label: "DREB", columns: []string{"DREB"}, derive: parseCount},
	{label: "AST", columns: []string{"AST"}, derive: parseCount},
	{label: "STL", columns: []string{"STL"}, derive: parseCount},
	{label: "BLK", columns: []string{"BLK"}, derive: parseCount},
	{label: "TO", columns: []string{"TO"}, derive: parseCount},
	{label: "PF", columns: []string{live.StatFouls}, derive: parseCount},
	{label: "+/-", columns: []string{"PM"}, derive: parseCount},
}

var fieldsByLabel = func() map[string]fieldMapping {
	m := make(map[string]fieldMapping, len(canonicalFields))
	for _, f := range canonicalFields {
		m[f.label] = f
	}
	return m
}()

func mappingFor(label string) fieldMapping {
	if f, ok := fieldsByLabel[label]; ok {
		return f
	}
	return fieldMapping{label: label, columns: []string{label}, derive: parseCount}
}

// apply derives the mapping's columns from raw and stores them in stats.
func (f fieldMapping) apply(raw string, stats map[string]int) error {
	values, err := f.derive(raw)
	if err != nil {
		return fmt.Errorf("%w: stat %s=%q: %v", ErrMalformedFeed, f.label, raw, err)
	}
	if len(values) != len(f.columns) {
		return fmt.Errorf("%w: stat %s=%q produced %d values for %d columns",
			ErrMalformedFeed, f.label, raw, len(values), len(f.columns))
	}
	for i, col := range f.columns {
		stats[col] = values[i]
	}
	return nil
}

func isPlaceholder(raw string) bool {
	return raw == "" || raw == placeholder
}

func parseCount(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if isPlaceholder(raw) {
		return []int{0}, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return []int{v}, nil
}

// parseMinutes accepts whole minutes or "MM:SS", keeping whole minutes.
func parseMinutes(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if mins, _, ok := strings.Cut(raw, ":"); ok {
		raw = mins
	}
	return parseCount(raw)
}

// parseMadeAttempted splits "7-12" into made and attempted.
func parseMadeAttempted(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if isPlaceholder(raw) {
		return []int{0, 0}, nil
	}
	made, attempted, ok := strings.Cut(raw, "-")
	if !ok {
		return nil, fmt.Errorf("expected made-attempted pair")
	}
	m, err := strconv.Atoi(strings.TrimSpace(made))
	if err != nil {
		return nil, err
	}
	a, err := strconv.Atoi(strings.TrimSpace(attempted))
	if err != nil {
		return nil, err
	}
	return []int{m, a}, nil
}
