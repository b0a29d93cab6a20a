package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// Marshal serializes a network as a single JSON object
func Marshal(n *models.Network) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes a network as a single JSON object followed by a newline
func Encode(w io.Writer, n *models.Network) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(n); err != nil {
		return fmt.Errorf("failed to encode network: %w", err)
	}
	return nil
}

// Unmarshal decodes and validates a network
func Unmarshal(data []byte) (*models.Network, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a network written by Encode and validates it
func Decode(r io.Reader) (*models.Network, error) {
	var n models.Network
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return nil, fmt.Errorf("%w: failed to decode network: %v", apperrors.ErrSchema, err)
	}
	if n.Nodes == nil {
		n.Nodes = make(map[string]*models.Node)
	}
	if n.NodeOrder == nil {
		n.NodeOrder = []string{}
	}
	if n.Edges == nil {
		n.Edges = []models.Edge{}
	}
	if n.Processes == nil {
		n.Processes = make(map[string]*models.Pathway)
	}
	for id, node := range n.Nodes {
		if node == nil {
			return nil, fmt.Errorf("%w: node %s is null", apperrors.ErrSchema, id)
		}
		if node.Expression == nil {
			node.Expression = make(map[string]*float64)
		}
		if node.RGBA == nil {
			node.RGBA = make(map[string]models.FloatRGBA)
		}
		if node.RGBAJS == nil {
			node.RGBAJS = make(map[string]models.ByteRGBA)
		}
		if node.Processes == nil {
			node.Processes = models.NewStringSet()
		}
		if node.Reactions == nil {
			node.Reactions = models.NewStringSet()
		}
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}
