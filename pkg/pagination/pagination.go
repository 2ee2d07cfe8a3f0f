package pagination

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page.
// Returns 0 if the result would be negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// Pager is the paging block of a list view.
type Pager struct {
	Total   int
	From    int
	To      int
	NextURL string
	PrevURL string
}

// NewPager builds the paging links for a list at basePath. Search filters in
// query are carried over to the next and previous links.
func (p Params) NewPager(basePath string, query url.Values, shown, total int) Pager {
	pg := Pager{Total: total}
	if shown > 0 {
		pg.From = p.Offset + 1
		pg.To = p.Offset + shown
	}
	if p.HasNext(total) {
		pg.NextURL = pageURL(basePath, query, p.NextOffset(), p.Limit)
	}
	if p.HasPrevious() {
		pg.PrevURL = pageURL(basePath, query, p.PreviousOffset(), p.Limit)
	}
	return pg
}

func pageURL(basePath string, query url.Values, offset, limit int) string {
	q := url.Values{}
	for k, v := range query {
		if k == "offset" || k == "limit" {
			continue
		}
		q[k] = v
	}
	q.Set("offset", strconv.Itoa(offset))
	if limit != DefaultLimit {
		q.Set("limit", strconv.Itoa(limit))
	}
	return basePath + "?" + q.Encode()
}
