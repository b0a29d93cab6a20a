package models

// StatsMode selects raw t-test p-values or Benjamini-Hochberg adjusted ones
type StatsMode string

const (
	StatsModeTTest StatsMode = "ttest"
	StatsModeFDRBH StatsMode = "fdr_bh"
)

// IsValid reports whether the mode is known
func (m StatsMode) IsValid() bool {
	return m == StatsModeTTest || m == StatsModeFDRBH
}

// PValueRequest is the input line of the p-value process.
// Rows are features, columns are replicates.
type PValueRequest struct {
	Array1 [][]float64 `json:"array1"`
	Array2 [][]float64 `json:"array2"`
	Mode   StatsMode   `json:"mode,omitempty"`
}
