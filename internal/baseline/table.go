// Package baseline reads the pre-game feature table: one row per (date,
// player) with the player's expected minutes, expected first-half output
// and categorical context. The table is produced elsewhere; this package
// only reads it, once per request.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// Column names shared with the trained models.
const (
	ColDate    = "Date"
	ColSeason  = "Season"
	ColPlayer  = "Player"
	ColTeam    = "Team"
	ColOpp     = "Opp"
	ColPos     = "Pos"
	ColRole    = "role"
	ColMinutes = "MP"
	// ColTarget is the final point total the models were trained on.
	ColTarget = "PTS"

	// BaseSuffix marks the expected first-half value of a statistic.
	BaseSuffix = "_base"

	DateLayout = "2006-01-02"
)

// CategoricalColumns are encoded as category codes rather than numbers.
var CategoricalColumns = []string{ColTeam, ColOpp, ColPlayer, ColPos, ColRole}

// nonFeatureColumns never reach a Row's feature maps.
var nonFeatureColumns = map[string]bool{ColDate: true, ColSeason: true, ColTarget: true}

var (
	ErrBaselineMissing = errors.New("no baseline row for player")
	ErrDuplicateRow    = errors.New("more than one baseline row for player")
	ErrInvalidTable    = errors.New("invalid baseline table")
)

// Source loads the baseline rows of one date.
type Source interface {
	Load(ctx context.Context, date time.Time) (*Table, error)
	Close() error
}

// Row is one player's pre-game feature row.
type Row struct {
	Date        time.Time
	Player      string
	Categorical map[string]string
	Numeric     map[string]float64
}

// Number returns a numeric column, reporting whether it was present.
func (r Row) Number(col string) (float64, bool) {
	v, ok := r.Numeric[col]
	return v, ok
}

// Role returns the row's role classification.
func (r Row) Role() string {
	return r.Categorical[ColRole]
}

// Table is the set of baseline rows for one date plus the category
// dictionary of the whole source.
type Table struct {
	Date       time.Time
	Categories Categories
	rows       []Row
}

// NewTable builds a table from rows already filtered to date.
func NewTable(date time.Time, rows []Row, categories Categories) *Table {
	return &Table{Date: date, Categories: categories, rows: rows}
}

// Len returns the number of rows for the table's date.
func (t *Table) Len() int {
	return len(t.rows)
}

// Lookup returns the single row for player.
func (t *Table) Lookup(player string) (Row, error) {
	var (
		found Row
		n     int
	)
	for _, row := range t.rows {
		if row.Player == player {
			found = row
			n++
		}
	}

	switch n {
	case 0:
		return Row{}, fmt.Errorf("%w: %s on %s", ErrBaselineMissing, player, t.Date.Format(DateLayout))
	case 1:
		return found, nil
	default:
		return Row{}, fmt.Errorf("%w: %s on %s (%d rows)", ErrDuplicateRow, player, t.Date.Format(DateLayout), n)
	}
}

// Categories maps each categorical column to its ordered category list.
// A value's code is its index, matching how the models were trained on
// lexically sorted categories.
type Categories map[string][]string

// Encode returns the category code of value, or NaN when the value was
// never seen in the source table.
func (c Categories) Encode(col, value string) float64 {
	cats := c[col]
	i := sort.SearchStrings(cats, value)
	if i < len(cats) && cats[i] == value {
		return float64(i)
	}
	return math.NaN()
}

// categorySet collects distinct values per column while a source is read.
type categorySet map[string]map[string]struct{}

func (s categorySet) add(col, value string) {
	if value == "" {
		return
	}
	if s[col] == nil {
		s[col] = make(map[string]struct{})
	}
	s[col][value] = struct{}{}
}

func (s categorySet) sorted() Categories {
	out := make(Categories, len(s))
	for col, values := range s {
		list := make([]string, 0, len(values))
		for v := range values {
			list = append(list, v)
		}
		sort.Strings(list)
		out[col] = list
	}
	return out
}

func isCategorical(col string) bool {
	for _, c := range CategoricalColumns {
		if c == col {
			return true
		}
	}
	return false
}

// SameDay reports whether two times fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return a.Format(DateLayout) == b.Format(DateLayout)
}
