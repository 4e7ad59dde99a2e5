package pagerank

import "errors"

// Estimation errors. Callers match them with errors.Is; the returned
// errors wrap them with the offending value.
var (
	// ErrInvalidArgument is returned for an empty corpus, a damping factor
	// outside [0,1], a non-positive sample count, a page that is not part
	// of the corpus, and other malformed inputs.
	ErrInvalidArgument = errors.New("pagerank: invalid argument")

	// ErrNonConvergence is returned when power iteration exhausts its
	// sweep budget before every page is within tolerance.
	ErrNonConvergence = errors.New("pagerank: iteration did not converge")
)
