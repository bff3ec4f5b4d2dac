package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

func TestLikePattern(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{query: "", want: "%%"},
		{query: "plain", want: "%plain%"},
		{query: "%bar", want: `%\%bar%`},
		{query: "a_b", want: `%a\_b%`},
		{query: `back\slash`, want: `%back\\slash%`},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, likePattern(tt.query))
		})
	}
}

func TestSearchIssues(t *testing.T) {
	s := newTestStore(t)
	percent := mustCreate(t, s, "foo%barbaz")
	plain := mustCreate(t, s, "foobarbaz")
	underscore := mustCreate(t, s, "snake_case name")
	camel := mustCreate(t, s, "snakeXcase name")
	described, err := s.CreateIssue("unrelated title", types.Ptr("mentions the Widget"), types.PriorityLow)
	require.NoError(t, err)
	commented := mustCreate(t, s, "another title")
	_, err = s.AddComment(commented, "the widget broke again")
	require.NoError(t, err)
	_, err = s.AddComment(commented, "widget still broken")
	require.NoError(t, err)
	slashed := mustCreate(t, s, `C:\path\to`)

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{name: "literal percent", query: "%bar", want: []int64{percent}},
		{name: "literal underscore", query: "e_c", want: []int64{underscore}},
		{name: "substring", query: "barbaz", want: []int64{plain, percent}},
		{name: "case insensitive over description and comments", query: "WIDGET", want: []int64{commented, described}},
		{name: "backslash is literal", query: `\path`, want: []int64{slashed}},
		{name: "no match", query: "zzz", want: []int64{}},
		{name: "empty query matches everything", query: "", want: []int64{slashed, commented, described, camel, underscore, plain, percent}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SearchIssues(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, issueIDs(got))
		})
	}
}
