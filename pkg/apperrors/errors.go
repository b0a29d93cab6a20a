package apperrors

import "errors"

// Error kinds surfaced by the curation pipeline. Callers wrap these with
// fmt.Errorf("%w: ...") and match them with errors.Is.
var (
	ErrIO             = errors.New("io error")
	ErrSchema         = errors.New("schema error")
	ErrReconciliation = errors.New("reconciliation error")
	ErrRange          = errors.New("range error")
	ErrShape          = errors.New("shape error")
	ErrNotFound       = errors.New("not found")
)
