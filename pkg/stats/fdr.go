package stats

import (
	"math"
	"sort"
)

// BenjaminiHochberg adjusts p-values for the false discovery rate.
// The result is in input order; sorted by original rank it is non-decreasing.
func BenjaminiHochberg(pvalues []float64) []float64 {
	m := len(pvalues)
	adjusted := make([]float64, m)
	if m == 0 {
		return adjusted
	}
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pvalues[order[a]] < pvalues[order[b]]
	})

	running := 1.0
	for rank := m; rank >= 1; rank-- {
		idx := order[rank-1]
		running = math.Min(running, pvalues[idx]*float64(m)/float64(rank))
		adjusted[idx] = running
	}
	return adjusted
}
