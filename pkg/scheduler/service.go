package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// Runner runs one manifest build
type Runner interface {
	RunManifest(ctx context.Context, path string) (*models.BuildRecord, error)
}

// Service provides scheduled rebuilds
type Service struct {
	runner  Runner
	cron    *cron.Cron
	logger  *zap.Logger
	mu      sync.Mutex
	jobs    map[string]*models.ScheduledJob
	entries map[string]cron.EntryID // Maps job ID to cron entry ID
}

// NewService creates a new scheduler service
func NewService(runner Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		runner:  runner,
		cron:    cron.New(),
		logger:  logger.Named("scheduler"),
		jobs:    make(map[string]*models.ScheduledJob),
		entries: make(map[string]cron.EntryID),
	}
}

// Start starts the scheduler
func (s *Service) Start() {
	s.cron.Start()
	s.logger.Info("Rebuild scheduler started", zap.Int("jobs", len(s.Entries())))
}

// Stop stops the scheduler and waits for running builds to finish
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Rebuild scheduler stopped")
}

// Schedule registers a recurring rebuild of the manifest at manifestPath
func (s *Service) Schedule(spec, manifestPath string) (*models.ScheduledJob, error) {
	if manifestPath == "" {
		return nil, fmt.Errorf("%w: manifest path is required", apperrors.ErrSchema)
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid cron expression: %v", apperrors.ErrSchema, err)
	}

	now := time.Now()
	next := schedule.Next(now)
	job := &models.ScheduledJob{
		ID:           uuid.New().String(),
		ManifestPath: manifestPath,
		Schedule:     spec,
		CreatedAt:    now,
		NextRun:      &next,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[job.ID] = s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.execute(job.ID, schedule)
	}))
	s.jobs[job.ID] = job

	s.logger.Info("Scheduled rebuild",
		zap.String("job_id", job.ID),
		zap.String("manifest", manifestPath),
		zap.String("schedule", spec))
	return copyJob(job), nil
}

// Remove unschedules a job
func (s *Service) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: scheduled job %s", apperrors.ErrNotFound, id)
	}
	s.cron.Remove(entryID)
	delete(s.entries, id)
	delete(s.jobs, id)
	return nil
}

// Entries lists scheduled jobs ordered by creation time
func (s *Service) Entries() []*models.ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, copyJob(job))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// RunNow executes a scheduled job immediately, outside its schedule
func (s *Service) RunNow(id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: scheduled job %s", apperrors.ErrNotFound, id)
	}
	schedule, err := cron.ParseStandard(job.Schedule)
	if err != nil {
		return fmt.Errorf("%w: invalid cron expression: %v", apperrors.ErrSchema, err)
	}
	s.execute(id, schedule)
	return nil
}

// execute runs the job's manifest and records the outcome
func (s *Service) execute(id string, schedule cron.Schedule) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	path := job.ManifestPath
	s.mu.Unlock()

	s.logger.Info("Executing scheduled rebuild", zap.String("job_id", id), zap.String("manifest", path))
	record, err := s.runner.RunManifest(context.Background(), path)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	next := schedule.Next(now)
	job.LastRun = &now
	job.NextRun = &next
	if err != nil {
		job.LastError = err.Error()
		s.logger.Error("Scheduled rebuild failed", zap.String("job_id", id), zap.Error(err))
		return
	}
	job.LastError = ""
	job.LastBuildID = record.ID
	s.logger.Info("Scheduled rebuild completed",
		zap.String("job_id", id),
		zap.String("build_id", record.ID),
		zap.Int("nodes", record.NodeCount))
}

func copyJob(job *models.ScheduledJob) *models.ScheduledJob {
	c := *job
	return &c
}
