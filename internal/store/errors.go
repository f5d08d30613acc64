package store

import "errors"

var (
	// ErrCourseNotFound indicates that course-name resolution could not
	// return any course, which only happens when the catalog is empty.
	ErrCourseNotFound = errors.New("course not found")

	// ErrInvalidMaxResults indicates a non-positive search result cap.
	// It is returned before the vector index is consulted so that a
	// misconfigured cap surfaces as a configuration problem rather than
	// a database error.
	ErrInvalidMaxResults = errors.New("max results must be a positive integer")

	// ErrEmptyQuery indicates a search or resolution request with no text.
	ErrEmptyQuery = errors.New("query text is empty")
)
