package models

// Entity is an elementary biological object (protein, small molecule, ...)
type Entity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Complexes StringSet `json:"complexes"`
}

// NewEntity creates an entity with empty membership sets
func NewEntity(id, name, entityType string) *Entity {
	return &Entity{
		ID:        id,
		Name:      name,
		Type:      entityType,
		Complexes: NewStringSet(),
	}
}

// Complex is a composite of entities (or other complexes)
type Complex struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Participants StringSet `json:"participants"`
	Pathways     StringSet `json:"pathways"`
}

// NewComplex creates a complex with empty participant and pathway sets
func NewComplex(id, name string) *Complex {
	return &Complex{
		ID:           id,
		Name:         name,
		Participants: NewStringSet(),
		Pathways:     NewStringSet(),
	}
}

// Pathway is a named biological grouping. Members holds node identifiers.
type Pathway struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Members StringSet `json:"members"`
}

// NewPathway creates a pathway with no members
func NewPathway(id, name string) *Pathway {
	return &Pathway{ID: id, Name: name, Members: NewStringSet()}
}

// NameConflict records a display name that lost to an earlier one for the same identifier
type NameConflict struct {
	ID       string `json:"id"`
	Kept     string `json:"kept"`
	Ignored  string `json:"ignored"`
	Source   string `json:"source"`
	RowIndex int    `json:"row_index"`
}

// OrphanReference records a cross-table reference to an unknown complex
type OrphanReference struct {
	ComplexID string `json:"complex_id"`
	PathwayID string `json:"pathway_id"`
	RowIndex  int    `json:"row_index"`
}

// Reconciliation holds the canonical entity, complex and pathway records
// produced from the source tables. The *Order slices keep first-seen order.
type Reconciliation struct {
	Entities      map[string]*Entity  `json:"entities"`
	EntityOrder   []string            `json:"entity_order"`
	Complexes     map[string]*Complex `json:"complexes"`
	ComplexOrder  []string            `json:"complex_order"`
	Pathways      map[string]*Pathway `json:"pathways"`
	PathwayOrder  []string            `json:"pathway_order"`
	NameConflicts []NameConflict      `json:"name_conflicts,omitempty"`
	Orphans       []OrphanReference   `json:"orphans,omitempty"`
}

// NewReconciliation creates an empty reconciliation
func NewReconciliation() *Reconciliation {
	return &Reconciliation{
		Entities:  make(map[string]*Entity),
		Complexes: make(map[string]*Complex),
		Pathways:  make(map[string]*Pathway),
	}
}

// ComplexPathways returns complex id -> pathway ids
func (r *Reconciliation) ComplexPathways() map[string]StringSet {
	out := make(map[string]StringSet, len(r.Complexes))
	for id, c := range r.Complexes {
		out[id] = c.Pathways
	}
	return out
}
