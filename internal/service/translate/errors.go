package translate

import (
	"errors"
	"fmt"
)

// ErrEmptyTranslation is returned when a provider answers with no text.
var ErrEmptyTranslation = errors.New("translation missing from response")

// RejectionError marks a reachable provider whose result was unusable.
type RejectionError struct {
	Provider string
	Reason   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: translation rejected: %s", e.Provider, e.Reason)
}

// IsRejection reports whether err is a semantic rejection rather than a
// transport failure.
func IsRejection(err error) bool {
	var rejection *RejectionError
	return errors.As(err, &rejection)
}
