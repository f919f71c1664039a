package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type call struct {
	sql  string
	args []any
}

// fakeDB returns scripted rows and affected counts in call order.
type fakeDB struct {
	calls    []call
	rows     [][][]any
	affected []int64
	err      error
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	if f.err != nil {
		return nil, f.err
	}
	var data [][]any
	if len(f.rows) > 0 {
		data, f.rows = f.rows[0], f.rows[1:]
	}
	return &fakeRows{data: data, pos: -1}, nil
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	if len(f.affected) > 0 {
		n, f.affected = f.affected[0], f.affected[1:]
	}
	return n, nil
}

type fakeRows struct {
	data   [][]any
	pos    int
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		v := row[i]
		switch p := d.(type) {
		case *int64:
			*p = v.(int64)
		case *string:
			*p = v.(string)
		case *time.Time:
			*p = v.(time.Time)
		case **int64:
			if v == nil {
				*p = nil
			} else {
				n := v.(int64)
				*p = &n
			}
		case **string:
			if v == nil {
				*p = nil
			} else {
				s := v.(string)
				*p = &s
			}
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}
