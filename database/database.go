// Package database abstracts the read side of a SQL connection so that
// statements can run over pgxpool or database/sql alike.
package database

import (
	"context"
)

type Database interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	PingContext(ctx context.Context) error
	Close() error
}

// Rows is a forward-only result cursor. Callers must Close it and check Err
// after Next returns false.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}
