package paging_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/tally/internal/paging"
)

func TestFromValues(t *testing.T) {
	type testCase struct {
		name  string
		query string
		want  paging.Query
	}

	tests := []testCase{
		{
			name:  "All set",
			query: "page=3&take=25&order_by=name&order_direction=DESC",
			want:  paging.Query{Page: 3, Take: 25, OrderBy: "name", Desc: true},
		},
		{
			name:  "Malformed numbers",
			query: "page=abc&take=",
			want:  paging.Query{},
		},
		{
			name:  "Ascending by default",
			query: "order_by=created_at",
			want:  paging.Query{OrderBy: "created_at"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, paging.FromValues(v))
		})
	}
}

func TestQuery_Normalize(t *testing.T) {
	assert.Equal(t, paging.Query{Page: 1, Take: paging.DefaultTake}, paging.Query{}.Normalize())
	assert.Equal(t, paging.MaxTake, paging.Query{Take: 5000}.Normalize().Take)
	assert.Equal(t, 20, paging.Query{Page: 3, Take: 10}.Normalize().Offset())
}

func TestQuery_Column(t *testing.T) {
	allowed := map[string]string{"name": "c.name"}

	assert.Equal(t, "c.name", paging.Query{OrderBy: "name"}.Column(allowed, "c.created_at"))
	assert.Equal(t, "c.created_at", paging.Query{OrderBy: "name; DROP TABLE x"}.Column(allowed, "c.created_at"))
	assert.Equal(t, "ASC", paging.Query{}.Direction())
	assert.Equal(t, "DESC", paging.Query{Desc: true}.Direction())
}
