package query

import (
	"github.com/pkg/errors"
)

// Ordering is the order of a returned set of records
type Ordering uint

const (
	Ascending Ordering = iota
	Descending
)

var sqlDirections = map[Ordering]string{
	Ascending:  "ASC",
	Descending: "DESC",
}

// SQL returns the ORDER BY direction keyword for o.
func (o Ordering) SQL() (string, error) {
	direction, ok := sqlDirections[o]
	if !ok {
		return "", errors.Errorf("unexpected ordering: %d", uint(o))
	}
	return direction, nil
}

// SQLOrDefault is SQL with unknown orderings treated as Ascending.
func (o Ordering) SQLOrDefault() string {
	if direction, err := o.SQL(); err == nil {
		return direction
	}
	return sqlDirections[Ascending]
}
