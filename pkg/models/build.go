package models

import "time"

// BuildStatus represents the state of a network build
type BuildStatus string

const (
	BuildStatusBuilt     BuildStatus = "built"
	BuildStatusAnnotated BuildStatus = "annotated"
)

// BuildRecord describes one persisted network in the catalog.
// The serialized network itself carries no timestamps or ids so that
// identical inputs produce identical bytes; those live here instead.
type BuildRecord struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Organism      string      `json:"organism"`
	SourceVersion string      `json:"source_version"`
	Status        BuildStatus `json:"status"`
	NodeCount     int         `json:"node_count"`
	EdgeCount     int         `json:"edge_count"`
	ProcessCount  int         `json:"process_count"`
	FilePath      string      `json:"file_path"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
