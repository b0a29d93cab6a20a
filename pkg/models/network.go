package models

import (
	"encoding/json"
	"fmt"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
)

// NodeType tags a graph vertex
type NodeType string

const (
	NodeTypeReaction NodeType = "reaction"
	NodeTypeEntity   NodeType = "entity"
	NodeTypeComplex  NodeType = "complex"
)

// EdgeType is the relationship carried by an edge
type EdgeType string

const (
	EdgeComponentOf EdgeType = "component_of"
	EdgeInput       EdgeType = "input"
	EdgeOutput      EdgeType = "output"
	EdgeCatalyzes   EdgeType = "catalyzes"
	EdgeRegulates   EdgeType = "regulates"
	EdgeInteracts   EdgeType = "interacts"
)

// IsDirected reports whether the relationship has a direction
func (t EdgeType) IsDirected() bool {
	return t != EdgeInteracts
}

// FloatRGBA is a color with every channel in [0, 1]
type FloatRGBA [4]float64

// ByteRGBA is a color with 0-255 integer red, green and blue and a [0, 1] alpha.
// It encodes as [r, g, b, a] for JavaScript consumers.
type ByteRGBA struct {
	R, G, B uint8
	A       float64
}

// MarshalJSON encodes the color as a four element array
func (c ByteRGBA) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{float64(c.R), float64(c.G), float64(c.B), c.A})
}

// UnmarshalJSON decodes a four element array
func (c *ByteRGBA) UnmarshalJSON(data []byte) error {
	var raw [4]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		if raw[i] < 0 || raw[i] > 255 {
			return fmt.Errorf("channel %d out of byte range: %v", i, raw[i])
		}
	}
	c.R, c.G, c.B, c.A = uint8(raw[0]), uint8(raw[1]), uint8(raw[2]), raw[3]
	return nil
}

// Node is a graph vertex: a reaction, an entity or a complex.
// A nil Expression value means no data for that key.
type Node struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Type       NodeType             `json:"type"`
	EntityType string               `json:"entity_type,omitempty"`
	Members    StringSet            `json:"members,omitempty"`
	Processes  StringSet            `json:"processes"`
	Reactions  StringSet            `json:"nodes_reactions"`
	Expression map[string]*float64  `json:"expression"`
	RGBA       map[string]FloatRGBA `json:"rgba"`
	RGBAJS     map[string]ByteRGBA  `json:"rgba_js"`
}

// NewNode creates a node with all annotation maps initialized
func NewNode(id, name string, nodeType NodeType) *Node {
	return &Node{
		ID:         id,
		Name:       name,
		Type:       nodeType,
		Processes:  NewStringSet(),
		Reactions:  NewStringSet(),
		Expression: make(map[string]*float64),
		RGBA:       make(map[string]FloatRGBA),
		RGBAJS:     make(map[string]ByteRGBA),
	}
}

// HasValue reports whether the node carries a value for key
func (n *Node) HasValue(key string) bool {
	v, ok := n.Expression[key]
	return ok && v != nil
}

// Edge is a typed relationship between two nodes
type Edge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Type     EdgeType `json:"type"`
	Directed bool     `json:"directed"`
}

func (e Edge) key() string {
	if !e.Directed && e.Target < e.Source {
		return e.Target + "|" + e.Source + "|" + string(e.Type)
	}
	return e.Source + "|" + e.Target + "|" + string(e.Type)
}

// NetworkMetadata is global information about a built network
type NetworkMetadata struct {
	Organism      string   `json:"organism"`
	SourceVersion string   `json:"source_version"`
	NodeCount     int      `json:"node_count"`
	EdgeCount     int      `json:"edge_count"`
	SampleKeys    []string `json:"sample_keys,omitempty"`
	MaxValue      float64  `json:"max_value,omitempty"`
	ColorMap      string   `json:"color_map,omitempty"`
}

// Network is the full graph. It owns the canonical node records;
// NodeOrder keeps insertion order and Edges are kept in attachment order.
type Network struct {
	Metadata  NetworkMetadata     `json:"metadata"`
	Nodes     map[string]*Node    `json:"nodes"`
	NodeOrder []string            `json:"node_order"`
	Edges     []Edge              `json:"edges"`
	Processes map[string]*Pathway `json:"processes"`

	edgeKeys map[string]struct{}
}

// NewNetwork creates an empty network
func NewNetwork(organism, sourceVersion string) *Network {
	return &Network{
		Metadata:  NetworkMetadata{Organism: organism, SourceVersion: sourceVersion},
		Nodes:     make(map[string]*Node),
		NodeOrder: []string{},
		Edges:     []Edge{},
		Processes: make(map[string]*Pathway),
		edgeKeys:  make(map[string]struct{}),
	}
}

// AddNode inserts n unless a node with the same id exists.
// It returns the canonical node for the id and whether it was created.
func (n *Network) AddNode(node *Node) (*Node, bool) {
	if existing, ok := n.Nodes[node.ID]; ok {
		return existing, false
	}
	n.Nodes[node.ID] = node
	n.NodeOrder = append(n.NodeOrder, node.ID)
	n.Metadata.NodeCount = len(n.Nodes)
	return node, true
}

// Node returns the node with the given id
func (n *Network) Node(id string) (*Node, bool) {
	node, ok := n.Nodes[id]
	return node, ok
}

// AddEdge attaches e. Both endpoints must already exist. Duplicate edges are ignored
// and reported through the boolean result.
func (n *Network) AddEdge(e Edge) (bool, error) {
	if _, ok := n.Nodes[e.Source]; !ok {
		return false, fmt.Errorf("%w: edge source %s is not a node", apperrors.ErrReconciliation, e.Source)
	}
	if _, ok := n.Nodes[e.Target]; !ok {
		return false, fmt.Errorf("%w: edge target %s is not a node", apperrors.ErrReconciliation, e.Target)
	}
	if n.edgeKeys == nil {
		n.rebuildEdgeKeys()
	}
	k := e.key()
	if _, dup := n.edgeKeys[k]; dup {
		return false, nil
	}
	n.edgeKeys[k] = struct{}{}
	n.Edges = append(n.Edges, e)
	n.Metadata.EdgeCount = len(n.Edges)
	return true, nil
}

func (n *Network) rebuildEdgeKeys() {
	n.edgeKeys = make(map[string]struct{}, len(n.Edges))
	for _, e := range n.Edges {
		n.edgeKeys[e.key()] = struct{}{}
	}
}

// Validate checks that node order matches the node map and that every edge endpoint exists
func (n *Network) Validate() error {
	if len(n.NodeOrder) != len(n.Nodes) {
		return fmt.Errorf("%w: node order lists %d ids for %d nodes", apperrors.ErrSchema, len(n.NodeOrder), len(n.Nodes))
	}
	for _, id := range n.NodeOrder {
		if _, ok := n.Nodes[id]; !ok {
			return fmt.Errorf("%w: node order references unknown node %s", apperrors.ErrSchema, id)
		}
	}
	for i, e := range n.Edges {
		if _, ok := n.Nodes[e.Source]; !ok {
			return fmt.Errorf("%w: edge %d source %s is not a node", apperrors.ErrReconciliation, i, e.Source)
		}
		if _, ok := n.Nodes[e.Target]; !ok {
			return fmt.Errorf("%w: edge %d target %s is not a node", apperrors.ErrReconciliation, i, e.Target)
		}
	}
	return nil
}

// OrderedNodes returns nodes in insertion order
func (n *Network) OrderedNodes() []*Node {
	out := make([]*Node, 0, len(n.NodeOrder))
	for _, id := range n.NodeOrder {
		out = append(out, n.Nodes[id])
	}
	return out
}
