package hal

import "errors"

// Resolution errors. They are returned from Process, never panicked, and
// wrapped with detail; match them with errors.Is.
var (
	// ErrMalformed is returned when a document (or an embedded document) is
	// not a single JSON object, or its links or embedded collections have
	// the wrong shape.
	ErrMalformed = errors.New("malformed hypermedia document")

	// ErrInvalidFollow is returned for a link selector that is neither a
	// relation name nor a list of relation names.
	ErrInvalidFollow = errors.New("invalid link selector")

	// ErrMissingLink is returned when a relation selected for following has
	// no URL to fetch.
	ErrMissingLink = errors.New("link has no resolvable url")
)
