package rag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verdantlabs/corpusd/internal/vectorstore"
)

func makeMatches(n int) []vectorstore.Match {
	out := make([]vectorstore.Match, n)
	for i := range out {
		out[i] = vectorstore.Match{ID: fmt.Sprintf("m-%d", i), Score: 1 - float64(i)/100}
	}
	return out
}

func TestPaginate(t *testing.T) {
	matches := makeMatches(25)

	tests := []struct {
		page        int
		wantLen     int
		wantFirst   string
		hasNext     bool
		hasPrevious bool
	}{
		{page: 1, wantLen: 10, wantFirst: "m-0", hasNext: true, hasPrevious: false},
		{page: 2, wantLen: 10, wantFirst: "m-10", hasNext: true, hasPrevious: true},
		{page: 3, wantLen: 5, wantFirst: "m-20", hasNext: false, hasPrevious: true},
		{page: 4, wantLen: 0, hasNext: false, hasPrevious: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page_%d", tt.page), func(t *testing.T) {
			pageMatches, p := paginate(matches, tt.page, 10)

			assert.Len(t, pageMatches, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, pageMatches[0].ID)
			}
			assert.Equal(t, 25, p.TotalResults)
			assert.Equal(t, 3, p.TotalPages)
			assert.Equal(t, tt.hasNext, p.HasNext)
			assert.Equal(t, tt.hasPrevious, p.HasPrevious)
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	pageMatches, p := paginate(nil, 1, 10)
	assert.Empty(t, pageMatches)
	assert.Equal(t, 0, p.TotalResults)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrevious)
}

func TestPaginateExactBoundary(t *testing.T) {
	pageMatches, p := paginate(makeMatches(20), 2, 10)
	assert.Len(t, pageMatches, 10)
	assert.Equal(t, 2, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrevious)
}
