package shared

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is applied when a listing request omits limit.
	DefaultLimit = 100
	// MaxLimit caps the page size a client may request.
	MaxLimit = 500
)

// Page is an offset window over a listing.
type Page struct {
	Skip  int
	Limit int
}

// PageFromQuery reads skip/limit query parameters with defaults and caps.
func PageFromQuery(q url.Values) Page {
	skip, _ := strconv.Atoi(q.Get("skip"))
	if skip < 0 {
		skip = 0
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Skip: skip, Limit: limit}
}
