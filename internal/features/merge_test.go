package features

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/fortuna/halftime/internal/baseline"
	"github.com/fortuna/halftime/internal/live"
)

func baseRow(player, role string) baseline.Row {
	return baseline.Row{
		Date:   time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		Player: player,
		Categorical: map[string]string{
			baseline.ColTeam: "NYK", baseline.ColOpp: "BOS", baseline.ColPlayer: player,
			baseline.ColPos: "PG", baseline.ColRole: role,
		},
		Numeric: map[string]float64{
			baseline.ColMinutes: 34,
			"PTS_base":          12.5,
			"FG_base":           4.5,
			"FGA_base":          10,
			"usage":             0.3,
		},
	}
}

func liveRows(player string, mp, pts, fg, fga int) []live.LiveRow {
	rows := live.Aggregate([]live.PlayerBoxScoreRow{
		{
			GameID: "1", Player: player, Team: "NYK", Opponent: "BOS",
			Stats: map[string]int{"MP": mp, "PTS": pts, "FG": fg, "FGA": fga, "FT": 1, "FTA": 2, "TPM": 0, "TPA": 1, "PF": 2},
		},
		{
			GameID: "1", Player: "Teammate", Team: "NYK", Opponent: "BOS",
			Stats: map[string]int{"MP": 10, "PTS": 10, "FG": 4, "FGA": 8, "FT": 2, "FTA": 2, "TPM": 0, "TPA": 0, "PF": 0},
		},
		{
			GameID: "1", Player: "Opponent", Team: "BOS", Opponent: "NYK",
			Stats: map[string]int{"MP": 20, "PTS": 25, "FG": 10, "FGA": 19, "FT": 5, "FTA": 5, "TPM": 0, "TPA": 0, "PF": 1},
		},
	})
	return rows
}

func TestMerge_CopiesLiveColumns(t *testing.T) {
	vec, err := Merge(baseRow("Jalen Brunson", "starter"), liveRows("Jalen Brunson", 18, 15, 6, 12), "Jalen Brunson", VariantEnsemble)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	want := map[string]float64{
		"MP_h1": 18, "PTS_h1": 15, "FG_h1": 6, "FGA_h1": 12, "FT_h1": 1, "FTA_h1": 2,
		"TPM_h1": 0, "TPA_h1": 1, "PF_h1": 2,
		"PTS_share_h1": 15.0 / 25, "FGA_share_h1": 12.0 / 20, "spread_h1": 0,
		"MP_h2": 16, "usage": 0.3,
		"PTS_diff": 2.5, "FG_diff": 1.5, "FGA_diff": 2,
	}
	for col, v := range want {
		got, ok := vec.Float(col)
		if !ok {
			t.Errorf("%s missing", col)
			continue
		}
		if got != v {
			t.Errorf("%s: expected %v, got %v", col, v, got)
		}
	}

	if _, ok := vec.Float(baseline.ColMinutes); ok {
		t.Error("total minutes column must be removed")
	}
	if vec.Categorical[baseline.ColRole] != "starter" {
		t.Errorf("starter role should be unchanged, got %s", vec.Categorical[baseline.ColRole])
	}
}

func TestMerge_SpreadFromAggregates(t *testing.T) {
	rows := liveRows("Jalen Brunson", 18, 20, 6, 12)
	vec, err := Merge(baseRow("Jalen Brunson", "starter"), rows, "Jalen Brunson", VariantSingle)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	// NYK 30 vs BOS 25.
	if vec.Spread() != 5 {
		t.Errorf("expected spread 5, got %v", vec.Spread())
	}
}

func TestMerge_SpreadUnknownWithoutOpponent(t *testing.T) {
	rows := live.Aggregate([]live.PlayerBoxScoreRow{{
		GameID: "1", Player: "Solo", Team: "NYK", Opponent: "BOS",
		Stats: map[string]int{"MP": 12, "PTS": 9, "FG": 4, "FGA": 7, "FT": 1, "FTA": 1, "TPM": 0, "TPA": 1, "PF": 1},
	}})
	vec, err := Merge(baseRow("Solo", "starter"), rows, "Solo", VariantEnsemble)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if !math.IsNaN(vec.Spread()) {
		t.Errorf("expected NaN spread without opponent rows, got %v", vec.Spread())
	}
	if got := vec.Numeric["PTS_h1"]; got != 9 {
		t.Errorf("own stats should still be copied, got PTS_h1=%v", got)
	}
}

func TestMerge_RoleDowngrade(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		minutes int
		want    string
	}{
		{"bench regular pulled early", RoleBenchRegular, 3, RoleMarginal},
		{"bench regular at threshold", RoleBenchRegular, 5, RoleBenchRegular},
		{"bench regular playing", RoleBenchRegular, 8, RoleBenchRegular},
		{"starter with few minutes", "starter", 2, "starter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := Merge(baseRow("Sam Hauser", tt.role), liveRows("Sam Hauser", tt.minutes, 0, 0, 0), "Sam Hauser", VariantEnsemble)
			if err != nil {
				t.Fatalf("Merge failed: %v", err)
			}
			if got := vec.Categorical[baseline.ColRole]; got != tt.want {
				t.Errorf("expected role %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMerge_DifferentialsByVariant(t *testing.T) {
	tests := []struct {
		variant Variant
		want    []string
		absent  []string
	}{
		{VariantSingle, nil, []string{"PTS_diff", "FG_diff", "FGA_diff"}},
		{VariantTwoModel, []string{"PTS_diff"}, []string{"FG_diff", "FGA_diff"}},
		{VariantEnsemble, []string{"PTS_diff", "FG_diff", "FGA_diff"}, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			vec, err := Merge(baseRow("P", "starter"), liveRows("P", 10, 8, 3, 6), "P", tt.variant)
			if err != nil {
				t.Fatalf("Merge failed: %v", err)
			}
			for _, col := range tt.want {
				if _, ok := vec.Float(col); !ok {
					t.Errorf("%s expected", col)
				}
			}
			for _, col := range tt.absent {
				if _, ok := vec.Float(col); ok {
					t.Errorf("%s not expected for %s", col, tt.variant)
				}
			}
		})
	}
}

func TestMerge_ZeroActivity(t *testing.T) {
	base := baseRow("Bench", "starter")
	for _, s := range []string{"PTS_base", "FG_base", "FGA_base"} {
		base.Numeric[s] = 0
	}
	zero := map[string]int{"MP": 0, "PTS": 0, "FG": 0, "FGA": 0, "FT": 0, "FTA": 0, "TPM": 0, "TPA": 0, "PF": 0}
	rows := live.Aggregate([]live.PlayerBoxScoreRow{
		{GameID: "1", Player: "Bench", Team: "NYK", Opponent: "BOS", Stats: zero},
		{GameID: "1", Player: "Other", Team: "BOS", Opponent: "NYK", Stats: zero},
	})

	vec, err := Merge(base, rows, "Bench", VariantEnsemble)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	for _, col := range vec.Columns() {
		v, ok := vec.Float(col)
		if !ok {
			continue
		}
		if strings.HasSuffix(col, H1Suffix) || strings.HasSuffix(col, DiffSuffix) {
			if v != 0 {
				t.Errorf("%s: expected 0, got %v", col, v)
			}
		}
	}
	if vec.Numeric[ColRemainingMinutes] != 34 {
		t.Errorf("expected all baseline minutes remaining, got %v", vec.Numeric[ColRemainingMinutes])
	}
}

func TestMerge_NotFound(t *testing.T) {
	_, err := Merge(baseRow("Ghost", "starter"), liveRows("Someone Else", 10, 5, 2, 4), "Ghost", VariantEnsemble)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMerge_SchemaMismatch(t *testing.T) {
	t.Run("missing live stat", func(t *testing.T) {
		rows := live.Aggregate([]live.PlayerBoxScoreRow{{
			GameID: "1", Player: "Partial", Team: "NYK", Opponent: "BOS",
			Stats: map[string]int{"MP": 10, "PTS": 4},
		}})
		_, err := Merge(baseRow("Partial", "starter"), rows, "Partial", VariantEnsemble)
		if !errors.Is(err, ErrSchemaMismatch) {
			t.Fatalf("expected ErrSchemaMismatch, got %v", err)
		}
	})

	t.Run("missing baseline expectation", func(t *testing.T) {
		base := baseRow("P", "starter")
		delete(base.Numeric, "FGA_base")
		_, err := Merge(base, liveRows("P", 10, 5, 2, 4), "P", VariantEnsemble)
		if !errors.Is(err, ErrSchemaMismatch) {
			t.Fatalf("expected ErrSchemaMismatch, got %v", err)
		}
		// Points-only variant does not need FGA_base.
		if _, err := Merge(base, liveRows("P", 10, 5, 2, 4), "P", VariantTwoModel); err != nil {
			t.Fatalf("two-model merge failed: %v", err)
		}
	})

	t.Run("missing baseline role", func(t *testing.T) {
		base := baseRow("P", "starter")
		delete(base.Categorical, baseline.ColRole)
		_, err := Merge(base, liveRows("P", 10, 5, 2, 4), "P", VariantEnsemble)
		if !errors.Is(err, ErrSchemaMismatch) {
			t.Fatalf("expected ErrSchemaMismatch, got %v", err)
		}
	})

	t.Run("missing baseline minutes", func(t *testing.T) {
		base := baseRow("P", "starter")
		delete(base.Numeric, baseline.ColMinutes)
		_, err := Merge(base, liveRows("P", 10, 5, 2, 4), "P", VariantSingle)
		if !errors.Is(err, ErrSchemaMismatch) {
			t.Fatalf("expected ErrSchemaMismatch, got %v", err)
		}
	})
}

func TestMerge_DoesNotMutateBaseline(t *testing.T) {
	base := baseRow("P", RoleBenchRegular)
	if _, err := Merge(base, liveRows("P", 2, 0, 0, 0), "P", VariantEnsemble); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if base.Role() != RoleBenchRegular {
		t.Errorf("baseline role mutated to %s", base.Role())
	}
	if _, ok := base.Number(baseline.ColMinutes); !ok {
		t.Error("baseline MP removed from source row")
	}
}

func TestParseVariant(t *testing.T) {
	for _, s := range []string{"single", "Two-Model", " ensemble "} {
		if _, err := ParseVariant(s); err != nil {
			t.Errorf("ParseVariant(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseVariant("triple"); err == nil {
		t.Error("expected error for unknown variant")
	}
}
