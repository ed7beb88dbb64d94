package baseline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/fortuna/halftime/internal/store"
)

// DefaultTable is the baseline table name when none is configured.
const DefaultTable = "baseline_features"

// resultRows is the part of *sql.Rows the source reads.
type resultRows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

type queryFunc func(ctx context.Context, query string, args ...interface{}) (resultRows, error)

// PostgresSource reads the baseline table from PostgreSQL.
type PostgresSource struct {
	db    *store.Database
	query queryFunc
	table string
}

// NewPostgresSource creates a source reading table through db. The table
// name may be schema-qualified.
func NewPostgresSource(db *store.Database, table string) *PostgresSource {
	return newPostgresSource(db, func(ctx context.Context, query string, args ...interface{}) (resultRows, error) {
		rows, err := db.DB().QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		return rows, nil
	}, table)
}

func newPostgresSource(db *store.Database, query queryFunc, table string) *PostgresSource {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresSource{db: db, query: query, table: quoteTable(table)}
}

func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

// Load reads the rows of date and the category dictionary of the table.
func (s *PostgresSource) Load(ctx context.Context, date time.Time) (*Table, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s = $1::date`, s.table, pq.QuoteIdentifier(ColDate))

	rows, err := s.query(ctx, query, date.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying baseline rows: %w", err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading baseline columns: %w", err)
	}
	parser, err := newRecordParser(header)
	if err != nil {
		return nil, err
	}

	// Categories come from a separate query over the whole table; the
	// per-date rows only contribute values already in it.
	scratch := make(categorySet)
	var out []Row
	for rows.Next() {
		values := make([]interface{}, len(header))
		ptrs := make([]interface{}, len(header))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning baseline row: %w", err)
		}

		record := make([]string, len(values))
		for i, v := range values {
			record[i] = cellString(v)
		}

		row, err := parser.parse(record, scratch)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating baseline rows: %w", err)
	}

	cats, err := s.categories(ctx, header)
	if err != nil {
		return nil, err
	}
	return NewTable(date, out, cats), nil
}

func (s *PostgresSource) categories(ctx context.Context, header []string) (Categories, error) {
	set := make(categorySet)
	for _, col := range header {
		if !isCategorical(col) {
			continue
		}

		quoted := pq.QuoteIdentifier(col)
		query := fmt.Sprintf(`SELECT DISTINCT %s::text FROM %s WHERE %s IS NOT NULL`, quoted, s.table, quoted)
		rows, err := s.query(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("querying categories for %s: %w", col, err)
		}

		for rows.Next() {
			var value string
			if err := rows.Scan(&value); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning category for %s: %w", col, err)
			}
			set.add(col, value)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating categories for %s: %w", col, err)
		}
	}
	return set.sorted(), nil
}

// HealthCheck pings the database behind the source.
func (s *PostgresSource) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.HealthCheck(ctx)
}

// Close closes the underlying database.
func (s *PostgresSource) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// cellString renders a driver value the way the CSV export would.
func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format(DateLayout)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
