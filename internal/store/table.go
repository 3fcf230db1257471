package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tabler is implemented by every model; the name is the logical table.
type Tabler interface {
	TableName() string
}

// Table is the typed view of one table.
type Table[T Tabler] struct {
	c    *Client
	name string
}

// NewTable binds a model type to the client.
func NewTable[T Tabler](c *Client) *Table[T] {
	var zero T
	return &Table[T]{c: c, name: zero.TableName()}
}

// Name returns the logical table name.
func (t *Table[T]) Name() string { return t.name }

// Find returns all matching rows, or an empty slice on failure.
func (t *Table[T]) Find(ctx context.Context, q Query) []T {
	rows := []T{}
	if q.isEmptyIn() {
		return rows
	}
	err := t.c.run(ctx, "select", t.name, func(tx *gorm.DB) error {
		var out []T
		if err := q.apply(tx.Model(new(T))).Find(&out).Error; err != nil {
			return err
		}
		rows = out
		return nil
	})
	if err != nil {
		t.c.logger.Warn("Select failed, returning empty result", "table", t.name, "error", err)
		return []T{}
	}
	return rows
}

// FindBy is shorthand for Find(ctx, Where(filters...)).
func (t *Table[T]) FindBy(ctx context.Context, filters ...Filter) []T {
	return t.Find(ctx, Where(filters...))
}

// First returns the first matching row, or nil when none exists or the
// read failed.
func (t *Table[T]) First(ctx context.Context, q Query) *T {
	var out T
	err := t.c.run(ctx, "select", t.name, func(tx *gorm.DB) error {
		return q.apply(tx.Model(new(T))).Limit(1).Take(&out).Error
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			t.c.logger.Warn("Select failed, treating as not found", "table", t.name, "error", err)
		}
		return nil
	}
	return &out
}

// FirstBy is shorthand for First(ctx, Where(filters...)).
func (t *Table[T]) FirstBy(ctx context.Context, filters ...Filter) *T {
	return t.First(ctx, Where(filters...))
}

// Count returns the number of matching rows, or 0 on failure.
func (t *Table[T]) Count(ctx context.Context, filters ...Filter) int64 {
	q := Where(filters...)
	if q.isEmptyIn() {
		return 0
	}
	var n int64
	err := t.c.run(ctx, "count", t.name, func(tx *gorm.DB) error {
		return q.apply(tx.Model(new(T))).Count(&n).Error
	})
	if err != nil {
		t.c.logger.Warn("Count failed, returning zero", "table", t.name, "error", err)
		return 0
	}
	return n
}

// Insert creates rec; generated keys are written back into rec.
func (t *Table[T]) Insert(ctx context.Context, rec *T) error {
	err := t.c.run(ctx, "insert", t.name, func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
	return t.writeErr("insert", err)
}

// Conflict describes an upsert: the unique columns and the columns to
// overwrite when the row exists. No Update columns means do nothing.
type Conflict struct {
	Columns []string
	Update  []string
}

// Upsert inserts rec or resolves the conflict on the declared unique columns.
func (t *Table[T]) Upsert(ctx context.Context, rec *T, on Conflict) error {
	cols := make([]clause.Column, len(on.Columns))
	for i, name := range on.Columns {
		cols[i] = clause.Column{Name: name}
	}
	oc := clause.OnConflict{Columns: cols}
	if len(on.Update) == 0 {
		oc.DoNothing = true
	} else {
		oc.DoUpdates = clause.AssignmentColumns(on.Update)
	}

	err := t.c.run(ctx, "upsert", t.name, func(tx *gorm.DB) error {
		return tx.Clauses(oc).Create(rec).Error
	})
	return t.writeErr("upsert", err)
}

// Update sets values on every row matching filters and returns the number
// of rows touched. At least one filter is required.
func (t *Table[T]) Update(ctx context.Context, values map[string]any, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, t.writeErr("update", errors.New("refusing unfiltered update"))
	}
	var affected int64
	err := t.c.run(ctx, "update", t.name, func(tx *gorm.DB) error {
		res := Where(filters...).apply(tx.Model(new(T))).Updates(values)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, t.writeErr("update", err)
}

// Delete removes every row matching filters. Deleting nothing is success.
func (t *Table[T]) Delete(ctx context.Context, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, t.writeErr("delete", errors.New("refusing unfiltered delete"))
	}
	var affected int64
	err := t.c.run(ctx, "delete", t.name, func(tx *gorm.DB) error {
		res := Where(filters...).apply(tx).Delete(new(T))
		affected = res.RowsAffected
		return res.Error
	})
	return affected, t.writeErr("delete", err)
}

func (t *Table[T]) writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	t.c.logger.Warn("Store write failed", "op", op, "table", t.name, "error", err)
	return &WriteError{Op: op, Table: t.name, Err: err}
}
