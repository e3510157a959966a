package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineSide(t *testing.T) {
	t.Parallel()

	horizontal := Line{X1: 0, Y1: 100, X2: 200, Y2: 100}

	tests := []struct {
		name string
		line Line
		p    Point
		want float64
	}{
		{"above horizontal line", horizontal, Pt(50, 90), 2000},
		{"below horizontal line", horizontal, Pt(50, 110), -2000},
		{"on horizontal line", horizontal, Pt(123, 100), 0},
		{"reversed endpoints flip sign", Line{X1: 200, Y1: 100, X2: 0, Y2: 100}, Pt(50, 90), -2000},
		{"vertical line left side", Line{X1: 10, Y1: 0, X2: 10, Y2: 50}, Pt(0, 25), -500},
		{"vertical line right side", Line{X1: 10, Y1: 0, X2: 10, Y2: 50}, Pt(20, 25), 500},
		{"diagonal through origin", Line{X1: 0, Y1: 0, X2: 1, Y2: 1}, Pt(1, 0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.line.Side(tt.p), 1e-9)
		})
	}
}

func TestLineIsDegenerate(t *testing.T) {
	t.Parallel()

	assert.True(t, Line{X1: 3, Y1: 4, X2: 3, Y2: 4}.IsDegenerate())
	assert.False(t, Line{X1: 3, Y1: 4, X2: 3, Y2: 5}.IsDegenerate())

	// Every point sits on a degenerate line.
	assert.Zero(t, Line{X1: 3, Y1: 4, X2: 3, Y2: 4}.Side(Pt(100, -7)))
}
