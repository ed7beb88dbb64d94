package baseline

import (
	"context"
	"errors"

	"github.com/fortuna/halftime/internal/store"
)

// Open returns the CSV source when csvPath is set, otherwise a PostgreSQL
// source on dsn. Exactly one of the two must be given.
func Open(ctx context.Context, csvPath, dsn, table string) (Source, error) {
	switch {
	case csvPath != "" && dsn != "":
		return nil, errors.New("baseline: both a CSV path and a DSN were given")
	case csvPath != "":
		return NewCSVSource(csvPath), nil
	case dsn != "":
		db, err := store.NewDatabase(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return NewPostgresSource(db, table), nil
	default:
		return nil, errors.New("baseline: no source configured")
	}
}
