package dispatcher

import "errors"

// ErrInvalidRequest marks submissions rejected before a workflow is created:
// bad content parameters, an empty target list, duplicate platforms, or a
// target configuration its adapter refuses.
var ErrInvalidRequest = errors.New("invalid workflow request")

// IsInvalidRequest reports whether err came from submission validation.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
