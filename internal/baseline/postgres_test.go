package baseline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
)

type fakeRows struct {
	columns []string
	data    [][]interface{}
	next    int
	scanErr error
	closed  bool
}

func (r *fakeRows) Columns() ([]string, error) { return r.columns, nil }

func (r *fakeRows) Next() bool {
	if r.next >= len(r.data) {
		return false
	}
	r.next++
	return true
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.next-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *interface{}:
			*p = row[i]
		case *string:
			*p = fmt.Sprint(row[i])
		default:
			return fmt.Errorf("unsupported scan target %T", d)
		}
	}
	return nil
}

func (r *fakeRows) Err() error   { return nil }
func (r *fakeRows) Close() error { r.closed = true; return nil }

// fakeDB answers the row query and the per-column DISTINCT queries.
type fakeDB struct {
	columns    []string
	data       [][]interface{}
	categories map[string][]string
	queryErr   error
	scanErr    error

	queries []string
	args    [][]interface{}
	opened  []*fakeRows
}

func (f *fakeDB) query(ctx context.Context, query string, args ...interface{}) (resultRows, error) {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	var rows *fakeRows
	if strings.HasPrefix(query, "SELECT * FROM") {
		rows = &fakeRows{columns: f.columns, data: f.data, scanErr: f.scanErr}
	} else {
		rows = &fakeRows{}
		for col, values := range f.categories {
			if strings.HasPrefix(query, fmt.Sprintf(`SELECT DISTINCT "%s"::text`, col)) {
				rows.columns = []string{col}
				for _, v := range values {
					rows.data = append(rows.data, []interface{}{v})
				}
			}
		}
	}
	f.opened = append(f.opened, rows)
	return rows, nil
}

func newFakeDB() *fakeDB {
	day := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	return &fakeDB{
		columns: []string{"Season", "Date", "Player", "Team", "Opp", "Pos", "role", "MP", "PTS", "PTS_base", "usage"},
		data: [][]interface{}{
			{int64(2026), day, "Jalen Brunson", []byte("NYK"), []byte("BOS"), "PG", "starter", 35.0, nil, 12.8, 0.3},
			{int64(2026), day, "Sam Hauser", []byte("BOS"), []byte("NYK"), "SF", "bench_regular", 18.0, nil, 4.2, nil},
		},
		categories: map[string][]string{
			"Team": {"NYK", "MIA", "BOS"},
			"Opp":  {"BOS", "NYK", "MIA"},
		},
	}
}

func TestPostgresSource_Load(t *testing.T) {
	db := newFakeDB()
	src := newPostgresSource(nil, db.query, "analytics.baseline_features")

	table, err := src.Load(context.Background(), refDate)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}

	if !strings.Contains(db.queries[0], `FROM "analytics"."baseline_features" WHERE "Date" = $1::date`) {
		t.Errorf("unexpected row query %q", db.queries[0])
	}
	if len(db.args[0]) != 1 || db.args[0][0] != "2026-10-15" {
		t.Errorf("unexpected query args %v", db.args[0])
	}

	row, err := table.Lookup("Jalen Brunson")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if mp, _ := row.Number(ColMinutes); mp != 35 {
		t.Errorf("expected MP 35, got %v", mp)
	}
	if row.Categorical[ColTeam] != "NYK" || row.Role() != "starter" {
		t.Errorf("unexpected categorical fields %v", row.Categorical)
	}
	if _, ok := row.Numeric[ColTarget]; ok {
		t.Error("target column should not be a feature")
	}

	hauser, _ := table.Lookup("Sam Hauser")
	if v, ok := hauser.Number("usage"); !ok || !math.IsNaN(v) {
		t.Errorf("expected NULL usage to be NaN, got %v", v)
	}

	// Codes come from the whole table, not just today's rows.
	if got := table.Categories.Encode(ColTeam, "MIA"); got != 1 {
		t.Errorf("expected MIA code 1, got %v", got)
	}
	if got := table.Categories.Encode(ColTeam, "LAL"); !math.IsNaN(got) {
		t.Errorf("expected unseen team to be NaN, got %v", got)
	}

	for _, rows := range db.opened {
		if !rows.closed {
			t.Error("result rows left open")
		}
	}
}

func TestPostgresSource_LoadErrors(t *testing.T) {
	t.Run("query fails", func(t *testing.T) {
		db := newFakeDB()
		db.queryErr = errors.New("connection reset")
		if _, err := newPostgresSource(nil, db.query, "").Load(context.Background(), refDate); err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(db.queries[0], `"baseline_features"`) {
			t.Errorf("expected default table, got %q", db.queries[0])
		}
	})

	t.Run("scan fails", func(t *testing.T) {
		db := newFakeDB()
		db.scanErr = errors.New("bad value")
		if _, err := newPostgresSource(nil, db.query, "").Load(context.Background(), refDate); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("missing player column", func(t *testing.T) {
		db := newFakeDB()
		db.columns = []string{"Date", "Team"}
		_, err := newPostgresSource(nil, db.query, "").Load(context.Background(), refDate)
		if !errors.Is(err, ErrInvalidTable) {
			t.Fatalf("expected ErrInvalidTable, got %v", err)
		}
	})
}

func TestCellString(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{[]byte("NYK"), "NYK"},
		{int64(2026), "2026"},
		{12.5, "12.5"},
		{true, "true"},
		{time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), "2026-10-15"},
	}
	for _, tt := range tests {
		if got := cellString(tt.in); got != tt.want {
			t.Errorf("cellString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPostgresSource_HealthCheckWithoutDatabase(t *testing.T) {
	src := newPostgresSource(nil, newFakeDB().query, "")
	if err := src.HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
