package reconcile

import "errors"

var (
	ErrMalformedEvent = errors.New("malformed provider event")
	ErrEnqueueFailed  = errors.New("failed to enqueue provider event")
)
