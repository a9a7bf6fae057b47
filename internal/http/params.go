package http

import (
	"net/url"
	"strconv"

	"salesdash/internal/core"
)

// parsePagination reads page and perPage from the query, falling back to
// defaults on missing, malformed or non-positive values.
func parsePagination(q url.Values) (page, perPage int) {
	page = core.DefaultPage
	perPage = core.DefaultPerPage

	if raw := q.Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}
	if raw := q.Get("perPage"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			perPage = v
		}
	}
	return page, perPage
}
