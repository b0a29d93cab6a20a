package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// LoadManifest reads a YAML build manifest. Relative table paths are
// resolved against the manifest's directory.
func LoadManifest(path string) (*models.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read manifest: %v", apperrors.ErrIO, err)
	}
	return ParseManifest(data, filepath.Dir(path))
}

// ParseManifest decodes and validates a manifest. baseDir anchors relative paths.
func ParseManifest(data []byte, baseDir string) (*models.Manifest, error) {
	var m models.Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: failed to parse manifest: %v", apperrors.ErrSchema, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid manifest: %v", apperrors.ErrSchema, err)
	}

	for _, src := range sources(&m) {
		if src.Path != "" && !filepath.IsAbs(src.Path) {
			src.Path = filepath.Join(baseDir, src.Path)
		}
	}
	return &m, nil
}

func sources(m *models.Manifest) []*models.TableSource {
	out := []*models.TableSource{&m.ComplexParticipants, &m.ComplexPathways}
	if m.ReactionParticipants != nil {
		out = append(out, m.ReactionParticipants)
	}
	if m.ReactionPathways != nil {
		out = append(out, m.ReactionPathways)
	}
	if m.Expression != nil {
		out = append(out, &m.Expression.TableSource)
	}
	return out
}
