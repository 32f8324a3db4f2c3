package multinbs

import "errors"

// Sentinel errors returned by pipeline stages. Call sites add context with
// fmt.Errorf and %w, so match these with errors.Is.
var (
	// ErrNoOverlap reports that a profile and a network share no genes,
	// leaving nothing to propagate or factor.
	ErrNoOverlap = errors.New("multinbs: profile and network share no genes")

	// ErrSingular reports that a linear solve or inversion failed because
	// the system matrix is singular to working precision.
	ErrSingular = errors.New("multinbs: matrix is singular to working precision")

	// ErrEmptyCohort reports that no samples survived filtering, so there is
	// nothing left to cluster.
	ErrEmptyCohort = errors.New("multinbs: no samples remain after filtering")
)
