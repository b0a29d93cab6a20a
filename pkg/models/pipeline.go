package models

import "fmt"

// TableSource points at one delimited input file and says how to read it
type TableSource struct {
	Path           string            `yaml:"path"`
	Columns        []string          `yaml:"columns,omitempty"`
	HeaderRow      *int              `yaml:"header_row,omitempty"`
	Delimiter      string            `yaml:"delimiter,omitempty"`
	Rename         map[string]string `yaml:"rename,omitempty"`
	OrganismColumn string            `yaml:"organism_column,omitempty"`
}

// ColumnSpec converts the YAML shape into the column naming variant.
// Explicit column names win; otherwise header_row (default 0) is used.
func (s *TableSource) ColumnSpec() ColumnSpec {
	if len(s.Columns) > 0 {
		return Headerless{Names: s.Columns}
	}
	if s.HeaderRow != nil && *s.HeaderRow < 0 {
		return NoHeader{}
	}
	idx := 0
	if s.HeaderRow != nil {
		idx = *s.HeaderRow
	}
	return HeaderRow{Index: idx}
}

// ExpressionSource is an optional table of per-sample values keyed by node id
type ExpressionSource struct {
	TableSource `yaml:",inline"`
	IDColumn    string   `yaml:"id_column"`
	SampleKeys  []string `yaml:"sample_keys"`
}

// Manifest lists the inputs of one network build
type Manifest struct {
	Name                 string            `yaml:"name"`
	Organism             string            `yaml:"organism"`
	SourceVersion        string            `yaml:"source_version"`
	ComplexParticipants  TableSource       `yaml:"complex_participants"`
	ComplexPathways      TableSource       `yaml:"complex_pathways"`
	ReactionParticipants *TableSource      `yaml:"reaction_participants,omitempty"`
	ReactionPathways     *TableSource      `yaml:"reaction_pathways,omitempty"`
	Expression           *ExpressionSource `yaml:"expression,omitempty"`
}

// Validate checks that the required inputs are named
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.ComplexParticipants.Path == "" {
		return fmt.Errorf("complex_participants.path is required")
	}
	if m.ComplexPathways.Path == "" {
		return fmt.Errorf("complex_pathways.path is required")
	}
	if m.Expression != nil {
		if m.Expression.Path == "" {
			return fmt.Errorf("expression.path is required")
		}
		if m.Expression.IDColumn == "" {
			return fmt.Errorf("expression.id_column is required")
		}
	}
	return nil
}
