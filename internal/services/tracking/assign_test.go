package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssign(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cost [][]float64
		want []int
	}{
		{
			name: "empty",
			cost: nil,
			want: nil,
		},
		{
			name: "no columns",
			cost: [][]float64{{}, {}},
			want: []int{-1, -1},
		},
		{
			name: "square optimal beats greedy",
			cost: [][]float64{
				{1, 2},
				{2, 10},
			},
			want: []int{1, 0},
		},
		{
			name: "more rows than columns",
			cost: [][]float64{
				{5},
				{1},
				{3},
			},
			want: []int{-1, 0, -1},
		},
		{
			name: "more columns than rows",
			cost: [][]float64{
				{9, 1, 4},
			},
			want: []int{1},
		},
		{
			name: "forbidden cells stay unassigned",
			cost: [][]float64{
				{forbidden, forbidden},
				{forbidden, 2},
			},
			want: []int{-1, 1},
		},
		{
			name: "forbidden column does not hide cheaper match",
			cost: [][]float64{
				{forbidden, 10},
				{forbidden, 5},
			},
			want: []int{-1, 1},
		},
		{
			name: "most allowed matches then cheapest",
			cost: [][]float64{
				{forbidden, 3},
				{4, forbidden},
				{forbidden, 1},
			},
			want: []int{-1, 0, 1},
		},
		{
			name: "forbidden cells with padding",
			cost: [][]float64{
				{27, 3, forbidden},
			},
			want: []int{1},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, assign(tt.cost))
		})
	}
}
