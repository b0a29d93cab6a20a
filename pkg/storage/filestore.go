package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
	"github.com/mimir-aip/pathway-graph/pkg/network"
)

// FileStore persists serialized networks as <basePath>/<name>.json
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore creates a new file-based storage instance
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create storage directory: %v", apperrors.ErrIO, err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Path returns the file a network name is stored at
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.basePath, name+".json")
}

// SaveNetwork writes a network to disk, replacing any previous file.
// The file is written to a temporary name first and renamed into place.
func (s *FileStore) SaveNetwork(name string, n *models.Network) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	data, err := network.Marshal(n)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("%w: failed to write network file: %v", apperrors.ErrIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: failed to move network file into place: %v", apperrors.ErrIO, err)
	}
	return path, nil
}

// LoadNetwork reads and validates a stored network
func (s *FileStore) LoadNetwork(name string) (*models.Network, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: network %s", apperrors.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open network file: %v", apperrors.ErrIO, err)
	}
	defer f.Close()
	return network.Decode(f)
}

// ListNetworks lists stored network names in sorted order
func (s *FileStore) ListNetworks() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read storage directory: %v", apperrors.ErrIO, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// DeleteNetwork removes a stored network
func (s *FileStore) DeleteNetwork(name string) error {
	if err := validName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: network %s", apperrors.ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to delete network file: %v", apperrors.ErrIO, err)
	}
	return nil
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: invalid network name %q", apperrors.ErrSchema, name)
	}
	return nil
}
