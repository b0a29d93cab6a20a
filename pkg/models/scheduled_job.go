package models

import "time"

// ScheduledJob is a recurring rebuild of one manifest
type ScheduledJob struct {
	ID           string     `json:"id"`
	ManifestPath string     `json:"manifest_path"`
	Schedule     string     `json:"schedule"` // Cron expression
	CreatedAt    time.Time  `json:"created_at"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
	LastBuildID  string     `json:"last_build_id,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}
