// Package pagination applies optional limit/offset query parameters to list
// endpoints. Without a limit the whole list is returned.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	MaxLimit = 500

	// TotalCountHeader carries the unpaginated result count.
	TotalCountHeader = "X-Total-Count"
)

// Params holds pagination parameters extracted from a request. Limit 0
// means no limit.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts limit and offset from the query string. Invalid or
// negative values are ignored.
func FromContext(c echo.Context) Params {
	var p Params
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		p.Limit = limit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
		p.Offset = offset
	}
	return p
}

// Page returns the window of items selected by p.
func Page[T any](items []T, p Params) []T {
	if p.Offset >= len(items) {
		return items[:0]
	}
	items = items[p.Offset:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

// SetTotal writes the total count header.
func SetTotal(c echo.Context, total int) {
	c.Response().Header().Set(TotalCountHeader, strconv.Itoa(total))
}
