package tracking

import "math"

// forbidden marks a cost matrix cell that the solver must never pick.
var forbidden = math.Inf(1)

// assign solves the rectangular min-cost assignment for a rows×cols matrix
// using Kuhn–Munkres with potentials. It returns match[i] = column for row i
// or -1 when the row stays unassigned. Forbidden cells are never returned;
// among the assignments with the most allowed cells it picks the cheapest.
func assign(cost [][]float64) []int {
	rows := len(cost)
	if rows == 0 {
		return nil
	}
	cols := len(cost[0])
	match := make([]int, rows)
	for i := range match {
		match[i] = -1
	}
	if cols == 0 {
		return match
	}

	// Forbidden and padding cells cost more than any set of allowed cells
	// combined, and stay small enough that potentials keep pixel precision.
	placeholder := 1.0
	for _, row := range cost {
		for _, c := range row {
			if !math.IsInf(c, 1) {
				placeholder += math.Abs(c)
			}
		}
	}

	n := max(rows, cols)
	at := func(i, j int) float64 {
		if i < rows && j < cols && !math.IsInf(cost[i][j], 1) {
			return cost[i][j]
		}
		return placeholder
	}

	const inf = math.MaxFloat64 / 2

	// 1-indexed: column 0 is the virtual start of each augmenting path.
	rowPot := make([]float64, n+1)
	colPot := make([]float64, n+1)
	owner := make([]int, n+1)
	prev := make([]int, n+1)
	slack := make([]float64, n+1)
	visited := make([]bool, n+1)

	for r := 1; r <= n; r++ {
		owner[0] = r
		c0 := 0
		for c := 1; c <= n; c++ {
			slack[c] = inf
			visited[c] = false
		}

		for {
			visited[c0] = true
			r0 := owner[c0]
			delta := inf
			c1 := -1

			for c := 1; c <= n; c++ {
				if visited[c] {
					continue
				}
				reduced := at(r0-1, c-1) - rowPot[r0] - colPot[c]
				if reduced < slack[c] {
					slack[c] = reduced
					prev[c] = c0
				}
				if slack[c] < delta {
					delta = slack[c]
					c1 = c
				}
			}
			if c1 < 0 {
				break
			}

			for c := 0; c <= n; c++ {
				if visited[c] {
					rowPot[owner[c]] += delta
					colPot[c] -= delta
				} else {
					slack[c] -= delta
				}
			}

			c0 = c1
			if owner[c0] == 0 {
				break
			}
		}

		for c0 != 0 {
			owner[c0] = owner[prev[c0]]
			c0 = prev[c0]
		}
	}

	for c := 1; c <= n; c++ {
		r := owner[c] - 1
		if r < 0 || r >= rows || c-1 >= cols {
			continue
		}
		if math.IsInf(cost[r][c-1], 1) {
			continue
		}
		match[r] = c - 1
	}
	return match
}
