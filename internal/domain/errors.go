package domain

import "errors"

// Domain errors
var (
	ErrHighlightNotFound   = errors.New("highlight not found")
	ErrArticleNotCached    = errors.New("article not cached")
	ErrStoreVersionUnknown = errors.New("unknown highlight store version")
	ErrMissingServerID     = errors.New("highlight has no server id")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
