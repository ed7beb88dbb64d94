// Package features joins a player's live first-half line onto the pre-game
// baseline row, producing the vector the boosted-tree models consume.
package features

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/fortuna/halftime/internal/baseline"
	"github.com/fortuna/halftime/internal/live"
)

// Column suffixes and derived column names.
const (
	H1Suffix   = "_h1"
	DiffSuffix = "_diff"

	ColPTSShare         = "PTS_share"
	ColFGAShare         = "FGA_share"
	ColSpread           = "spread"
	ColRemainingMinutes = "MP_h2"
)

// Role classes and the early-hook threshold. These come from the training
// data; retrained models may need different values.
const (
	RoleBenchRegular = "bench_regular"
	RoleMarginal     = "marginal"

	MarginalMinutesThreshold = 5
)

var (
	// ErrNotFound means the player has no live row; callers answer with
	// the unavailable sentinel rather than an error.
	ErrNotFound = errors.New("player not in live feed")
	// ErrSchemaMismatch means a required live or baseline column is absent.
	ErrSchemaMismatch = errors.New("feature schema mismatch")
)

type liveColumn struct {
	name  string
	value func(r live.LiveRow) (float64, bool)
}

func stat(name string) liveColumn {
	return liveColumn{name: name, value: func(r live.LiveRow) (float64, bool) {
		v, ok := r.Stat(name)
		return float64(v), ok
	}}
}

// liveColumns are copied onto the vector under the _h1 suffix.
var liveColumns = []liveColumn{
	stat(live.StatMinutes),
	stat(live.StatPoints),
	stat(live.StatFieldGoals),
	stat(live.StatFieldGoalsAtt),
	stat(live.StatFreeThrows),
	stat(live.StatFreeThrowsAtt),
	stat(live.StatThreesMade),
	stat(live.StatThreesAtt),
	stat(live.StatFouls),
	{name: ColPTSShare, value: func(r live.LiveRow) (float64, bool) { return r.PTSShare, true }},
	{name: ColFGAShare, value: func(r live.LiveRow) (float64, bool) { return r.FGAShare, true }},
	{name: ColSpread, value: liveSpread},
}

// liveSpread is missing (NaN) when the opponent block was absent, so the
// trees take their default branch instead of reading a one-sided total.
func liveSpread(r live.LiveRow) (float64, bool) {
	if !r.Aggregate.HasOpponent {
		return math.NaN(), true
	}
	return float64(r.Aggregate.Spread), true
}

// H1 returns the first-half column name of a statistic.
func H1(stat string) string { return stat + H1Suffix }

// Diff returns the differential column name of a statistic.
func Diff(stat string) string { return stat + DiffSuffix }

// Vector is a merged feature row. It is built fresh for every request.
type Vector struct {
	Player      string
	Numeric     map[string]float64
	Categorical map[string]string
}

// Float returns a numeric column.
func (v Vector) Float(col string) (float64, bool) {
	f, ok := v.Numeric[col]
	return f, ok
}

// Spread returns the first-half spread: zero when the column is absent, NaN
// when the opponent's score was unknown.
func (v Vector) Spread() float64 {
	return v.Numeric[H1(ColSpread)]
}

// Columns returns every column name in sorted order.
func (v Vector) Columns() []string {
	cols := make([]string, 0, len(v.Numeric)+len(v.Categorical))
	for c := range v.Numeric {
		cols = append(cols, c)
	}
	for c := range v.Categorical {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Merge builds the feature vector for player from the baseline row and the
// live rows. It returns ErrNotFound when the player has no live row and
// ErrSchemaMismatch when a required column is missing on either side.
func Merge(base baseline.Row, rows []live.LiveRow, player string, variant Variant) (Vector, error) {
	row, ok := live.FindPlayer(rows, player)
	if !ok {
		return Vector{}, fmt.Errorf("%w: %s", ErrNotFound, player)
	}

	vec := Vector{
		Player:      player,
		Numeric:     make(map[string]float64, len(base.Numeric)+len(liveColumns)+4),
		Categorical: make(map[string]string, len(base.Categorical)),
	}
	for k, v := range base.Numeric {
		vec.Numeric[k] = v
	}
	for k, v := range base.Categorical {
		vec.Categorical[k] = v
	}

	for _, col := range liveColumns {
		v, ok := col.value(row)
		if !ok {
			return Vector{}, fmt.Errorf("%w: live row for %s has no %s", ErrSchemaMismatch, player, col.name)
		}
		vec.Numeric[H1(col.name)] = v
	}

	role, ok := base.Categorical[baseline.ColRole]
	if !ok {
		return Vector{}, fmt.Errorf("%w: baseline row for %s has no %s", ErrSchemaMismatch, player, baseline.ColRole)
	}
	minutesH1 := vec.Numeric[H1(live.StatMinutes)]
	vec.Categorical[baseline.ColRole] = reclassifyRole(role, minutesH1)

	totalMinutes, ok := base.Number(baseline.ColMinutes)
	if !ok {
		return Vector{}, fmt.Errorf("%w: baseline row for %s has no %s", ErrSchemaMismatch, player, baseline.ColMinutes)
	}
	vec.Numeric[ColRemainingMinutes] = totalMinutes - minutesH1
	delete(vec.Numeric, baseline.ColMinutes)

	for _, s := range variant.Differentials() {
		expected, ok := base.Number(s + baseline.BaseSuffix)
		if !ok {
			return Vector{}, fmt.Errorf("%w: baseline row for %s has no %s%s", ErrSchemaMismatch, player, s, baseline.BaseSuffix)
		}
		vec.Numeric[Diff(s)] = vec.Numeric[H1(s)] - expected
	}

	return vec, nil
}

// reclassifyRole downgrades a bench regular who was pulled early in the
// period to the marginal class.
func reclassifyRole(role string, minutesH1 float64) string {
	if role == RoleBenchRegular && minutesH1 < MarginalMinutesThreshold {
		return RoleMarginal
	}
	return role
}
