package stores

import (
	"errors"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/kv"
)

// IsNotFoundError returns true if the error is a "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, kv.ErrNotFound)
}
