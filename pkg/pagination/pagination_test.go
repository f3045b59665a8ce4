package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/backend/pkg/apperr"
)

var testSortable = map[string]string{
	"createdAt": "created_at",
	"title":     "title",
}

func queryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/chats?"+rawQuery, nil)
	return c
}

func TestParseDefaults(t *testing.T) {
	p, err := Parse(queryContext(t, ""), testSortable)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, DefaultSortColumn, p.SortColumn)
	assert.True(t, p.SortDesc)
}

func TestParsePageAndLimit(t *testing.T) {
	p, err := Parse(queryContext(t, "page=3&limit=25"), testSortable)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, 50, p.Offset())
}

func TestParsePageBelowOneCoerced(t *testing.T) {
	p, err := Parse(queryContext(t, "page=0"), testSortable)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)

	p, err = Parse(queryContext(t, "page=-4"), testSortable)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
}

func TestParseLimitValidation(t *testing.T) {
	for _, raw := range []string{"limit=0", "limit=-1", "limit=abc", "page=x"} {
		_, err := Parse(queryContext(t, raw), testSortable)
		require.Error(t, err, raw)
		assert.Equal(t, apperr.CodeInvalidQuery, apperr.CodeOf(err))
	}
}

func TestParseLimitClamped(t *testing.T) {
	p, err := Parse(queryContext(t, "limit=5000"), testSortable)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, p.Limit)
}

func TestParseSort(t *testing.T) {
	p, err := Parse(queryContext(t, "sort=title"), testSortable)
	require.NoError(t, err)
	assert.Equal(t, "title", p.SortColumn)
	assert.False(t, p.SortDesc)
	assert.Equal(t, "title ASC", p.OrderBy())

	p, err = Parse(queryContext(t, "sort=createdAt,desc"), testSortable)
	require.NoError(t, err)
	assert.Equal(t, "created_at", p.SortColumn)
	assert.True(t, p.SortDesc)
	assert.Equal(t, "created_at DESC", p.OrderBy())
}

func TestParseSortNotAllowlistedFallsBack(t *testing.T) {
	p, err := Parse(queryContext(t, "sort=api_key_hash,desc"), testSortable)
	require.NoError(t, err)
	assert.Equal(t, DefaultSortColumn, p.SortColumn)
	assert.True(t, p.SortDesc)
}

func TestNewResult(t *testing.T) {
	p := Params{Page: 2, Limit: 10}
	r := NewResult([]int{1, 2, 3, 4, 5}, 25, p)
	assert.Equal(t, 2, r.Page)
	assert.Equal(t, 10, r.Limit)
	assert.Equal(t, int64(25), r.TotalResults)
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)
}

func TestNewResultFirstAndLastPage(t *testing.T) {
	first := NewResult(nil, 25, Params{Page: 1, Limit: 10})
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrev)

	last := NewResult(nil, 25, Params{Page: 3, Limit: 10})
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)
}

func TestNewResultBeyondLastPage(t *testing.T) {
	r := NewResult([]int{}, 25, Params{Page: 9, Limit: 10})
	assert.Equal(t, 3, r.TotalPages)
	assert.False(t, r.HasNext)
	assert.True(t, r.HasPrev)
}

func TestNewResultEmpty(t *testing.T) {
	r := NewResult([]int{}, 0, Params{Page: 1, Limit: 10})
	assert.Equal(t, 0, r.TotalPages)
	assert.False(t, r.HasNext)
	assert.False(t, r.HasPrev)
}
