package store

import (
	"strings"

	"gorm.io/gorm"
)

type filterKind int

const (
	filterEq filterKind = iota
	filterIn
	filterILike
	filterNull
)

// Filter is a single predicate; multiple filters are ANDed.
type Filter struct {
	kind   filterKind
	column string
	value  any
}

// Eq matches column = value.
func Eq(column string, value any) Filter {
	return Filter{kind: filterEq, column: column, value: value}
}

// In matches column IN values. values must be a slice.
func In(column string, values any) Filter {
	return Filter{kind: filterIn, column: column, value: values}
}

// ILike is a case-insensitive LIKE; pattern uses % and _ wildcards.
func ILike(column, pattern string) Filter {
	return Filter{kind: filterILike, column: column, value: strings.ToLower(pattern)}
}

// IsNull matches rows where column is NULL.
func IsNull(column string) Filter {
	return Filter{kind: filterNull, column: column}
}

func (f Filter) apply(tx *gorm.DB) *gorm.DB {
	col := quoteColumn(f.column)
	switch f.kind {
	case filterIn:
		return tx.Where(col+" IN ?", f.value)
	case filterILike:
		// LOWER() keeps this portable between Postgres and SQLite
		return tx.Where("LOWER("+col+") LIKE ?", f.value)
	case filterNull:
		return tx.Where(col + " IS NULL")
	default:
		return tx.Where(col+" = ?", f.value)
	}
}

// quoteColumn keeps only identifier characters, column names come from code.
func quoteColumn(col string) string {
	var b strings.Builder
	for _, r := range col {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

func Asc(col string) Order  { return Order{Column: col} }
func Desc(col string) Order { return Order{Column: col, Desc: true} }

// Query bundles filters, ordering and an optional limit.
type Query struct {
	Filters []Filter
	Order   []Order
	Limit   int
}

// Where starts a query from filters.
func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

// OrderBy appends ordering terms.
func (q Query) OrderBy(o ...Order) Query {
	q.Order = append(append([]Order(nil), q.Order...), o...)
	return q
}

// Take limits the result size.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

func (q Query) apply(tx *gorm.DB) *gorm.DB {
	for _, f := range q.Filters {
		tx = f.apply(tx)
	}
	for _, o := range q.Order {
		term := quoteColumn(o.Column)
		if o.Desc {
			term += " DESC"
		} else {
			term += " ASC"
		}
		tx = tx.Order(term)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx
}

// isEmptyIn reports an IN filter over an empty slice; such a query matches nothing.
func (q Query) isEmptyIn() bool {
	for _, f := range q.Filters {
		if f.kind != filterIn {
			continue
		}
		if n, ok := sliceLen(f.value); ok && n == 0 {
			return true
		}
	}
	return false
}

func sliceLen(v any) (int, bool) {
	switch s := v.(type) {
	case []string:
		return len(s), true
	case []uint:
		return len(s), true
	case []int:
		return len(s), true
	case []any:
		return len(s), true
	}
	return 0, false
}
