package expression

import (
	"fmt"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// ColorMap maps a position in [0, 1] to a color
type ColorMap interface {
	Name() string
	At(position float64) models.FloatRGBA
}

// gradient interpolates in CIE L*a*b* between evenly spaced stops
type gradient struct {
	name  string
	stops []colorful.Color
}

func (g gradient) Name() string {
	return g.name
}

func (g gradient) At(position float64) models.FloatRGBA {
	position = clamp01(position)
	segments := len(g.stops) - 1
	scaled := position * float64(segments)
	i := int(math.Floor(scaled))
	if i >= segments {
		i = segments - 1
	}
	c := g.stops[i].BlendLab(g.stops[i+1], scaled-float64(i)).Clamped()
	return models.FloatRGBA{c.R, c.G, c.B, 1}
}

var colorMaps = map[string]ColorMap{
	"coolwarm": gradient{name: "coolwarm", stops: []colorful.Color{
		{R: 0.2298, G: 0.2987, B: 0.7537},
		{R: 0.5543, G: 0.6901, B: 0.9955},
		{R: 0.8674, G: 0.8644, B: 0.8626},
		{R: 0.9567, G: 0.5980, B: 0.4773},
		{R: 0.7057, G: 0.0156, B: 0.1502},
	}},
	"viridis": gradient{name: "viridis", stops: []colorful.Color{
		{R: 0.267, G: 0.005, B: 0.329},
		{R: 0.283, G: 0.141, B: 0.458},
		{R: 0.254, G: 0.265, B: 0.530},
		{R: 0.207, G: 0.372, B: 0.553},
		{R: 0.164, G: 0.471, B: 0.558},
		{R: 0.128, G: 0.567, B: 0.551},
		{R: 0.135, G: 0.659, B: 0.518},
		{R: 0.267, G: 0.749, B: 0.441},
		{R: 0.478, G: 0.821, B: 0.318},
		{R: 0.741, G: 0.873, B: 0.150},
		{R: 0.993, G: 0.906, B: 0.144},
	}},
	"greys": gradient{name: "greys", stops: []colorful.Color{
		{R: 1, G: 1, B: 1},
		{R: 0, G: 0, B: 0},
	}},
}

// LookupColorMap returns a registered color map by name
func LookupColorMap(name string) (ColorMap, error) {
	cm, ok := colorMaps[name]
	if !ok {
		return nil, fmt.Errorf("%w: color map %q (available: %v)", apperrors.ErrNotFound, name, ColorMapNames())
	}
	return cm, nil
}

// ColorMapNames lists the registered color maps
func ColorMapNames() []string {
	names := make([]string, 0, len(colorMaps))
	for name := range colorMaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Position maps value onto [0, 1] for a symmetric range [-maxValue, maxValue].
// maxValue must be positive.
func Position(value, maxValue float64) float64 {
	return clamp01((value + maxValue) / (2 * maxValue))
}

// ToBytes scales red, green and blue to 0-255 and keeps alpha as a float
func ToBytes(c models.FloatRGBA) models.ByteRGBA {
	return models.ByteRGBA{
		R: uint8(math.Round(clamp01(c[0]) * 255)),
		G: uint8(math.Round(clamp01(c[1]) * 255)),
		B: uint8(math.Round(clamp01(c[2]) * 255)),
		A: clamp01(c[3]),
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
