package home

import "errors"

var (
	// ErrMissingBundle is returned when a recovered activity's service
	// type has no registered bundle. The add fails; the engine continues.
	ErrMissingBundle = errors.New("no bundle registered for service type")

	// ErrUnknownServiceType rejects a launch intent for a service name
	// the bundle registry does not know.
	ErrUnknownServiceType = errors.New("unknown activity service type")
)
