package ai

import "errors"

// ErrUnavailable marks a provider that is not configured or cannot be reached.
var ErrUnavailable = errors.New("ai provider unavailable")
