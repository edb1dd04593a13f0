package walk

import "errors"

var (
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrPermissionRequired     = errors.New("location permission required")
)
