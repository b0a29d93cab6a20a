// Package expression attaches per-sample values and color encodings to
// network nodes. Missing values are filled by a fallback generator and every
// filled value is mapped through a continuous color map.
package expression

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// Values holds supplied expression values: node id -> sample key -> value.
// A nil value means absent.
type Values map[string]map[string]*float64

// Get returns the value for id at key, or nil when absent
func (v Values) Get(id, key string) *float64 {
	if v == nil {
		return nil
	}
	return v[id][key]
}

// Set stores value for id at key. NaN and infinite values are dropped.
func (v Values) Set(id, key string, value float64) {
	if !isFinite(value) {
		return
	}
	if v[id] == nil {
		v[id] = make(map[string]*float64)
	}
	v[id][key] = &value
}

// FromTable reads values from an expression table. idColumn names the node
// identifier column; keys selects the sample columns, or all other columns
// when empty. Empty, NA, NaN, infinite and null cells are absent.
func FromTable(t *models.Table, idColumn string, keys []string) (Values, []string, error) {
	if !t.HasColumn(idColumn) {
		return nil, nil, fmt.Errorf("%w: expression table has no id column %q", apperrors.ErrSchema, idColumn)
	}
	if len(keys) == 0 {
		for _, c := range t.Columns {
			if c != idColumn {
				keys = append(keys, c)
			}
		}
	}
	for _, k := range keys {
		if !t.HasColumn(k) {
			return nil, nil, fmt.Errorf("%w: expression table has no sample column %q", apperrors.ErrSchema, k)
		}
	}

	values := make(Values)
	for i := 0; i < t.Len(); i++ {
		id := strings.TrimSpace(t.Value(i, idColumn))
		if id == "" {
			return nil, nil, fmt.Errorf("%w: expression row %d has an empty id", apperrors.ErrSchema, i)
		}
		for _, k := range keys {
			raw := strings.TrimSpace(t.Value(i, k))
			if isAbsent(raw) {
				continue
			}
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: expression row %d column %q: %q is not a number", apperrors.ErrSchema, i, k, raw)
			}
			if !isFinite(f) {
				continue
			}
			values.Set(id, k, f)
		}
	}
	return values, keys, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isAbsent(raw string) bool {
	switch strings.ToLower(raw) {
	case "", "na", "nan", "null", "none":
		return true
	}
	return false
}
