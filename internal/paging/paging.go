package paging

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultTake = 10
	MaxTake     = 100
)

// Query is the page/sort part of a list request.
type Query struct {
	Page    int
	Take    int
	OrderBy string
	Desc    bool
}

// Result is one page of items plus the total number of matches.
type Result[T any] struct {
	Items []T
	Total int
	Page  int
	Take  int
}

// FromValues reads page, take, order_by and order_direction query parameters.
// Malformed numbers are ignored and replaced by defaults in Normalize.
func FromValues(v url.Values) Query {
	q := Query{
		OrderBy: strings.TrimSpace(v.Get("order_by")),
		Desc:    strings.EqualFold(v.Get("order_direction"), "desc"),
	}

	if n, err := strconv.Atoi(v.Get("page")); err == nil {
		q.Page = n
	}

	if n, err := strconv.Atoi(v.Get("take")); err == nil {
		q.Take = n
	}

	return q
}

func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}

	if q.Take < 1 {
		q.Take = DefaultTake
	}

	if q.Take > MaxTake {
		q.Take = MaxTake
	}

	return q
}

// Offset returns the row offset of a normalized query.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Take
}

// Column maps OrderBy to a SQL column using allowed, so that user input
// never reaches the query text. Unknown names resolve to fallback.
func (q Query) Column(allowed map[string]string, fallback string) string {
	if col, ok := allowed[q.OrderBy]; ok {
		return col
	}

	return fallback
}

func (q Query) Direction() string {
	if q.Desc {
		return "DESC"
	}

	return "ASC"
}
