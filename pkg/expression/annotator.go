package expression

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// Options configures an Annotator
type Options struct {
	MaxValue  float64
	ColorMap  ColorMap
	Generator Generator
	Logger    *zap.Logger
}

// Summary counts what an annotation run changed
type Summary struct {
	Supplied  int `json:"supplied"`
	Generated int `json:"generated"`
	Colored   int `json:"colored"`
	Kept      int `json:"kept"`
}

// Annotator fills missing expression values and their colors
type Annotator struct {
	maxValue  float64
	colorMap  ColorMap
	generator Generator
	logger    *zap.Logger
}

// NewAnnotator validates options and creates an Annotator
func NewAnnotator(opts Options) (*Annotator, error) {
	if !(opts.MaxValue > 0) || math.IsInf(opts.MaxValue, 1) {
		return nil, fmt.Errorf("%w: max_value must be positive and finite, got %v", apperrors.ErrRange, opts.MaxValue)
	}
	if opts.ColorMap == nil {
		cm, err := LookupColorMap("coolwarm")
		if err != nil {
			return nil, err
		}
		opts.ColorMap = cm
	}
	if opts.Generator == nil {
		g, err := NewNormalGenerator(0, 1, 42)
		if err != nil {
			return nil, err
		}
		opts.Generator = g
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Annotator{
		maxValue:  opts.MaxValue,
		colorMap:  opts.ColorMap,
		generator: opts.Generator,
		logger:    logger.Named("annotator"),
	}, nil
}

// Color maps a value to both color encodings
func (a *Annotator) Color(value float64) (models.FloatRGBA, models.ByteRGBA) {
	c := a.colorMap.At(Position(value, a.maxValue))
	return c, ToBytes(c)
}

// Annotate walks nodes in insertion order. For each key, a node without a
// present value takes the supplied value or, failing that, a generated one.
// Any node lacking a color at a key is colored. Present values are kept.
// Non-finite supplied values count as missing.
func (a *Annotator) Annotate(n *models.Network, values Values, keys []string) (Summary, error) {
	var s Summary
	if n == nil {
		return s, fmt.Errorf("%w: nil network", apperrors.ErrSchema)
	}
	for _, node := range n.OrderedNodes() {
		if node.Expression == nil {
			node.Expression = make(map[string]*float64)
		}
		if node.RGBA == nil {
			node.RGBA = make(map[string]models.FloatRGBA)
		}
		if node.RGBAJS == nil {
			node.RGBAJS = make(map[string]models.ByteRGBA)
		}
		for _, key := range keys {
			if node.HasValue(key) {
				s.Kept++
			} else if v := values.Get(node.ID, key); v != nil && isFinite(*v) {
				value := *v
				node.Expression[key] = &value
				s.Supplied++
			} else {
				value := a.generator.Next()
				if !isFinite(value) {
					return s, fmt.Errorf("%w: generator produced non-finite value %v for node %s", apperrors.ErrRange, value, node.ID)
				}
				node.Expression[key] = &value
				s.Generated++
			}
			_, hasFloat := node.RGBA[key]
			_, hasBytes := node.RGBAJS[key]
			if hasFloat && hasBytes {
				continue
			}
			f, b := a.Color(*node.Expression[key])
			node.RGBA[key] = f
			node.RGBAJS[key] = b
			s.Colored++
		}
	}

	n.Metadata.SampleKeys = mergeKeys(n.Metadata.SampleKeys, keys)
	n.Metadata.MaxValue = a.maxValue
	n.Metadata.ColorMap = a.colorMap.Name()

	a.logger.Info("Annotated network",
		zap.Int("nodes", len(n.NodeOrder)),
		zap.Strings("keys", keys),
		zap.Int("supplied", s.Supplied),
		zap.Int("generated", s.Generated),
		zap.Int("kept", s.Kept),
		zap.Int("colored", s.Colored))
	return s, nil
}

func mergeKeys(existing, keys []string) []string {
	seen := models.NewStringSet(existing...)
	out := append([]string(nil), existing...)
	for _, k := range keys {
		if seen.Add(k) {
			out = append(out, k)
		}
	}
	return out
}
