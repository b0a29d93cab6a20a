package expression

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
)

// Generator produces fallback values for nodes without data
type Generator interface {
	Next() float64
}

// NormalGenerator draws from a normal distribution with a fixed seed
type NormalGenerator struct {
	dist distuv.Normal
}

// NewNormalGenerator creates a seeded normal generator. mean and stddev must be
// finite and stddev must not be negative.
func NewNormalGenerator(mean, stddev float64, seed uint64) (*NormalGenerator, error) {
	if !isFinite(mean) {
		return nil, fmt.Errorf("%w: fallback mean must be finite, got %v", apperrors.ErrRange, mean)
	}
	if !isFinite(stddev) || stddev < 0 {
		return nil, fmt.Errorf("%w: fallback standard deviation must be finite and not negative, got %v", apperrors.ErrRange, stddev)
	}
	return &NormalGenerator{
		dist: distuv.Normal{
			Mu:    mean,
			Sigma: stddev,
			Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		},
	}, nil
}

// Next returns the next sample
func (g *NormalGenerator) Next() float64 {
	return g.dist.Rand()
}

// FixedGenerator always returns Value
type FixedGenerator struct {
	Value float64
}

// Next returns Value
func (g FixedGenerator) Next() float64 {
	return g.Value
}
