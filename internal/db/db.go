package db

import (
	"context"
	"database/sql"
	"strings"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

// expandSlice replaces the /*SLICE:name*/? marker with one placeholder per
// value and appends the values to args.
func expandSlice(query, name string, values []string, args []interface{}) (string, []interface{}) {
	marker := "/*SLICE:" + name + "*/?"
	if len(values) == 0 {
		return strings.Replace(query, marker, "NULL", 1), args
	}
	placeholders := strings.Repeat(",?", len(values))[1:]
	for _, v := range values {
		args = append(args, v)
	}
	return strings.Replace(query, marker, placeholders, 1), args
}
