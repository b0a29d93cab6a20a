// Package pipeline runs a network build end to end:
// load tables, reconcile, build, persist, then optionally annotate.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/expression"
	"github.com/mimir-aip/pathway-graph/pkg/extraction"
	"github.com/mimir-aip/pathway-graph/pkg/metadatastore"
	"github.com/mimir-aip/pathway-graph/pkg/models"
	"github.com/mimir-aip/pathway-graph/pkg/network"
	"github.com/mimir-aip/pathway-graph/pkg/storage"
	"github.com/mimir-aip/pathway-graph/pkg/table"
)

// Options are the deployment-wide build and annotation settings.
// A manifest's organism and source version override Organism and SourceVersion.
type Options struct {
	Organism       string
	SourceVersion  string
	Strict         bool
	MaxValue       float64
	ColorMap       string
	FallbackMean   float64
	FallbackStdDev float64
	FallbackSeed   uint64
}

// DefaultOptions mirrors the configuration defaults
func DefaultOptions() Options {
	return Options{
		Organism:       models.DefaultOrganism,
		Strict:         true,
		MaxValue:       2.0,
		ColorMap:       "coolwarm",
		FallbackMean:   0,
		FallbackStdDev: 1,
		FallbackSeed:   42,
	}
}

// Service provides network build and annotation operations
type Service struct {
	files   *storage.FileStore
	store   metadatastore.MetadataStore
	checker VersionChecker
	logger  *zap.Logger
	opts    Options

	// serializes builds and annotations
	mu sync.Mutex
}

// NewService creates a new pipeline service
func NewService(files *storage.FileStore, store metadatastore.MetadataStore, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		files:  files,
		store:  store,
		logger: logger.Named("pipeline"),
		opts:   opts,
	}
}

// WithVersionChecker enables an upstream release check before each build
func (s *Service) WithVersionChecker(c VersionChecker) *Service {
	s.checker = c
	return s
}

// BuildNetwork loads, reconciles and builds without persisting anything
func (s *Service) BuildNetwork(ctx context.Context, m *models.Manifest) (*models.Network, error) {
	organism := m.Organism
	if organism == "" {
		organism = s.opts.Organism
	}
	version := m.SourceVersion
	if version == "" {
		version = s.opts.SourceVersion
	}

	s.checkVersion(ctx, version)

	tables, err := s.loadTables(ctx, m, organism)
	if err != nil {
		return nil, err
	}

	rec, err := extraction.Reconcile(tables.participants, tables.pathways, extraction.Options{
		Strict: s.opts.Strict,
		Logger: s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", m.Name, err)
	}

	n, err := network.NewBuilder(s.logger, s.opts.Strict).Build(network.Input{
		Reconciliation:       rec,
		ReactionParticipants: tables.reactions,
		ReactionPathways:     tables.reactionPathways,
		Organism:             organism,
		SourceVersion:        version,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", m.Name, err)
	}
	return n, nil
}

// Build runs the build and stores the network in both the file store and the catalog.
// Nothing is persisted when any stage fails.
func (s *Service) Build(ctx context.Context, m *models.Manifest) (*models.BuildRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.BuildNetwork(ctx, m)
	if err != nil {
		s.logger.Error("Build failed", zap.String("name", m.Name), zap.Error(err))
		return nil, err
	}

	record := &models.BuildRecord{
		Name:          m.Name,
		Organism:      n.Metadata.Organism,
		SourceVersion: n.Metadata.SourceVersion,
		Status:        models.BuildStatusBuilt,
	}
	if err := s.persist(record, n, nil); err != nil {
		return nil, err
	}

	s.logger.Info("Build stored",
		zap.String("build_id", record.ID),
		zap.String("name", record.Name),
		zap.String("file", record.FilePath))
	return record, nil
}

// Annotate loads a stored build, fills in expression values and colors, and stores it again
func (s *Service) Annotate(ctx context.Context, buildID string, values expression.Values, keys []string) (*models.BuildRecord, expression.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var summary expression.Summary
	if err := ctx.Err(); err != nil {
		return nil, summary, err
	}
	if len(keys) == 0 {
		return nil, summary, fmt.Errorf("%w: at least one sample key is required", apperrors.ErrSchema)
	}

	record, err := s.store.GetBuild(buildID)
	if err != nil {
		return nil, summary, err
	}
	n, err := s.store.GetBuildNetwork(buildID)
	if err != nil {
		return nil, summary, err
	}
	previous, err := s.store.GetBuildNetwork(buildID)
	if err != nil {
		return nil, summary, err
	}

	annotator, err := s.newAnnotator()
	if err != nil {
		return nil, summary, err
	}
	summary, err = annotator.Annotate(n, values, keys)
	if err != nil {
		return nil, summary, err
	}

	record.Status = models.BuildStatusAnnotated
	if err := s.persist(record, n, previous); err != nil {
		return nil, summary, err
	}
	return record, summary, nil
}

// Run builds a manifest and, when it names an expression table, annotates the result
func (s *Service) Run(ctx context.Context, m *models.Manifest) (*models.BuildRecord, error) {
	record, err := s.Build(ctx, m)
	if err != nil {
		return nil, err
	}
	if m.Expression == nil {
		return record, nil
	}

	organism := m.Organism
	if organism == "" {
		organism = s.opts.Organism
	}
	t, err := table.Load(m.Expression.Path, table.OptionsFromSource(&m.Expression.TableSource, organism))
	if err != nil {
		return nil, fmt.Errorf("load expression table: %w", err)
	}
	values, keys, err := expression.FromTable(t, m.Expression.IDColumn, m.Expression.SampleKeys)
	if err != nil {
		return nil, err
	}
	record, _, err = s.Annotate(ctx, record.ID, values, keys)
	return record, err
}

// RunManifest loads the manifest at path and runs it
func (s *Service) RunManifest(ctx context.Context, path string) (*models.BuildRecord, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, m)
}

// List returns catalog records
func (s *Service) List() ([]*models.BuildRecord, error) {
	return s.store.ListBuilds()
}

// Get returns one catalog record
func (s *Service) Get(id string) (*models.BuildRecord, error) {
	return s.store.GetBuild(id)
}

// Network returns the stored network for a build
func (s *Service) Network(id string) (*models.Network, error) {
	return s.store.GetBuildNetwork(id)
}

func (s *Service) newAnnotator() (*expression.Annotator, error) {
	cm, err := expression.LookupColorMap(s.opts.ColorMap)
	if err != nil {
		return nil, err
	}
	gen, err := expression.NewNormalGenerator(s.opts.FallbackMean, s.opts.FallbackStdDev, s.opts.FallbackSeed)
	if err != nil {
		return nil, err
	}
	return expression.NewAnnotator(expression.Options{
		MaxValue:  s.opts.MaxValue,
		ColorMap:  cm,
		Generator: gen,
		Logger:    s.logger,
	})
}

// persist writes the network file, keyed by build id, then the catalog entry.
// When the catalog write fails the file is rolled back to previous, or removed
// when there is no previous network.
func (s *Service) persist(record *models.BuildRecord, n, previous *models.Network) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.NodeCount = len(n.Nodes)
	record.EdgeCount = len(n.Edges)
	record.ProcessCount = len(n.Processes)

	path, err := s.files.SaveNetwork(record.ID, n)
	if err != nil {
		return err
	}
	record.FilePath = path

	if err := s.store.SaveBuild(record, n); err != nil {
		s.rollbackFile(record.ID, previous)
		return fmt.Errorf("failed to save build: %w", err)
	}
	return nil
}

func (s *Service) rollbackFile(id string, previous *models.Network) {
	var err error
	if previous == nil {
		err = s.files.DeleteNetwork(id)
	} else {
		_, err = s.files.SaveNetwork(id, previous)
	}
	if err != nil {
		s.logger.Error("Failed to roll back network file", zap.String("build_id", id), zap.Error(err))
	}
}

// checkVersion only logs; an unreachable upstream never blocks a build
func (s *Service) checkVersion(ctx context.Context, version string) {
	if s.checker == nil {
		return
	}
	latest, err := s.checker.LatestVersion(ctx)
	if err != nil {
		s.logger.Warn("Version check failed", zap.Error(err))
		return
	}
	if version != "" && latest != version {
		s.logger.Warn("Source tables are not the latest release",
			zap.String("source_version", version),
			zap.String("latest_version", latest))
	}
}

type loadedTables struct {
	participants     *models.Table
	pathways         *models.Table
	reactions        *models.Table
	reactionPathways *models.Table
}

// loadTables reads the manifest tables concurrently; each result has its own slot
func (s *Service) loadTables(ctx context.Context, m *models.Manifest, organism string) (*loadedTables, error) {
	var out loadedTables
	g, ctx := errgroup.WithContext(ctx)

	load := func(name string, src *models.TableSource, dst **models.Table) {
		if src == nil {
			return
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := table.Load(src.Path, table.OptionsFromSource(src, organism))
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			s.logger.Debug("Loaded table", zap.String("table", name), zap.Int("rows", t.Len()))
			*dst = t
			return nil
		})
	}
	load("complex_participants", &m.ComplexParticipants, &out.participants)
	load("complex_pathways", &m.ComplexPathways, &out.pathways)
	load("reaction_participants", m.ReactionParticipants, &out.reactions)
	load("reaction_pathways", m.ReactionPathways, &out.reactionPathways)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
