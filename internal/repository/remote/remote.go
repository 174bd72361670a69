// Package remote talks to the authoritative store, the system of record for
// towers, readings and the reference tables mirrored locally.
package remote

import (
	"context"
	"fmt"
)

// Store is row-oriented access to the authoritative store. Rows are keyed by
// column name; timestamps travel as ISO-8601 text.
type Store interface {
	Insert(ctx context.Context, table string, row map[string]any) (map[string]any, error)
	Select(ctx context.Context, table string, filters ...Filter) ([]map[string]any, error)
	Update(ctx context.Context, table string, values map[string]any, filters ...Filter) ([]map[string]any, error)
	Count(ctx context.Context, table string, filters ...Filter) (int, error)
	Ping(ctx context.Context) error
	Close()
}

type Op string

const (
	OpEq      Op = "eq"
	OpNotNull Op = "not.is.null"
)

// Filter restricts a Select, Update or Count to matching rows.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func NotNull(column string) Filter {
	return Filter{Column: column, Op: OpNotNull}
}

func (f Filter) String() string {
	if f.Op == OpNotNull {
		return fmt.Sprintf("%s is not null", f.Column)
	}
	return fmt.Sprintf("%s %s %v", f.Column, f.Op, f.Value)
}
