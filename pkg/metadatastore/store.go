package metadatastore

import "github.com/mimir-aip/pathway-graph/pkg/models"

// MetadataStore is the build catalog: one record per persisted network plus
// the serialized network itself.
type MetadataStore interface {
	SaveBuild(record *models.BuildRecord, network *models.Network) error
	GetBuild(id string) (*models.BuildRecord, error)
	GetBuildNetwork(id string) (*models.Network, error)
	ListBuilds() ([]*models.BuildRecord, error)
	DeleteBuild(id string) error
	Close() error
}
