// Package pagination converts page/limit/sort query parameters into a
// bounded, deterministic query plan and assembles the uniform list
// envelope used by every collection endpoint.
//
// The total count and the page fetch are two independent reads against
// the same filter; they are deliberately not transactional. The total is
// best-effort: a page boundary may shift by at most the number of writes
// that land between the two reads.
package pagination

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chatvault/backend/pkg/apperr"
)

const (
	// DefaultLimit is used when no limit parameter is supplied.
	DefaultLimit = 10
	// MaxLimit caps the page size; larger requests are clamped, not
	// rejected.
	MaxLimit = 100
	// DefaultSortColumn orders listings by creation time when no sort is
	// given or the requested field is unrecognized.
	DefaultSortColumn = "created_at"
)

// Params is a validated pagination plan. SortColumn always comes from the
// endpoint's allowlist, never raw request input.
type Params struct {
	Page       int
	Limit      int
	SortColumn string
	SortDesc   bool
}

// Offset returns the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// OrderBy renders the ORDER BY body for the plan.
func (p Params) OrderBy() string {
	dir := "ASC"
	if p.SortDesc {
		dir = "DESC"
	}
	return p.SortColumn + " " + dir
}

// Parse reads page, limit and sort from the request. sortable maps API
// field names to database columns; an unrecognized sort field falls back
// to the default sort rather than failing the request. A limit of zero or
// below is rejected; pages below one are coerced to one.
func Parse(c *gin.Context, sortable map[string]string) (Params, error) {
	p := Params{Page: 1, Limit: DefaultLimit, SortColumn: DefaultSortColumn, SortDesc: true}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, apperr.InvalidQuery("invalid page parameter")
		}
		if n < 1 {
			n = 1
		}
		p.Page = n
	}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, apperr.InvalidQuery("invalid limit parameter")
		}
		if n <= 0 {
			return Params{}, apperr.InvalidQuery("limit must be positive")
		}
		if n > MaxLimit {
			n = MaxLimit
		}
		p.Limit = n
	}

	if raw := c.Query("sort"); raw != "" {
		field := raw
		desc := false
		if i := strings.IndexByte(raw, ','); i >= 0 {
			field = raw[:i]
			desc = strings.EqualFold(raw[i+1:], "desc")
		}
		if column, ok := sortable[field]; ok {
			p.SortColumn = column
			p.SortDesc = desc
		}
	}

	return p, nil
}

// Result is the list envelope.
type Result struct {
	Results      interface{} `json:"results"`
	Page         int         `json:"page"`
	Limit        int         `json:"limit"`
	TotalResults int64       `json:"totalResults"`
	TotalPages   int         `json:"totalPages"`
	HasNext      bool        `json:"hasNext"`
	HasPrev      bool        `json:"hasPrev"`
}

// NewResult assembles the envelope for one fetched page. A page beyond
// the last yields an empty result set with correct metadata.
func NewResult(items interface{}, total int64, p Params) Result {
	totalPages := int(math.Ceil(float64(total) / float64(p.Limit)))
	return Result{
		Results:      items,
		Page:         p.Page,
		Limit:        p.Limit,
		TotalResults: total,
		TotalPages:   totalPages,
		HasNext:      p.Page < totalPages,
		HasPrev:      p.Page > 1,
	}
}
