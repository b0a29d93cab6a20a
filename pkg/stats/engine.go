// Package stats computes per-feature significance values for two groups of
// replicate measurements: a pooled-variance two-sided t-test and an optional
// Benjamini-Hochberg adjustment.
package stats

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// Engine runs the statistical computation for one mode
type Engine struct {
	Mode    models.StatsMode
	Workers int
}

// NewEngine creates an engine. workers <= 0 uses GOMAXPROCS.
func NewEngine(mode models.StatsMode, workers int) (*Engine, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: unknown stats mode %q", apperrors.ErrRange, mode)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{Mode: mode, Workers: workers}, nil
}

// Run computes one p-value per feature row, adjusted when the mode is fdr_bh
func (e *Engine) Run(ctx context.Context, array1, array2 [][]float64) ([]float64, error) {
	if !e.Mode.IsValid() {
		return nil, fmt.Errorf("%w: unknown stats mode %q", apperrors.ErrRange, e.Mode)
	}
	a, err := toDense("array1", array1)
	if err != nil {
		return nil, err
	}
	b, err := toDense("array2", array2)
	if err != nil {
		return nil, err
	}
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra != rb {
		return nil, fmt.Errorf("%w: array1 has %d rows, array2 has %d", apperrors.ErrShape, ra, rb)
	}
	if ca+cb < 3 {
		return nil, fmt.Errorf("%w: need at least 3 observations per feature, got %d", apperrors.ErrShape, ca+cb)
	}

	pvalues := make([]float64, ra)
	g, ctx := errgroup.WithContext(ctx)
	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for i := 0; i < ra; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pvalues[i] = TTest(a.RawRowView(i), b.RawRowView(i))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if e.Mode == models.StatsModeFDRBH {
		return BenjaminiHochberg(pvalues), nil
	}
	return pvalues, nil
}

// TTest returns the two-sided p-value of Student's t-test with equal
// variances. When the pooled variance is zero the result is 1 for equal
// means and 0 otherwise.
func TTest(x, y []float64) float64 {
	nx, ny := float64(len(x)), float64(len(y))
	mx, vx := stat.MeanVariance(x, nil)
	my, vy := stat.MeanVariance(y, nil)
	if len(x) < 2 {
		vx = 0
	}
	if len(y) < 2 {
		vy = 0
	}
	df := nx + ny - 2
	pooled := ((nx-1)*vx + (ny-1)*vy) / df
	if pooled == 0 {
		if mx == my {
			return 1
		}
		return 0
	}
	t := (mx - my) / math.Sqrt(pooled*(1/nx+1/ny))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return math.Min(1, 2*dist.CDF(-math.Abs(t)))
}

func toDense(name string, rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows", apperrors.ErrShape, name)
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("%w: %s row 0 is empty", apperrors.ErrShape, name)
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: %s row %d has %d values, expected %d", apperrors.ErrShape, name, i, len(row), cols)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %s[%d][%d] is not finite", apperrors.ErrRange, name, i, j)
			}
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
