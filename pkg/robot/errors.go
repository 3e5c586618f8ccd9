package robot

import "errors"

// Error kinds reported by the hardware backends. Backends wrap these, so
// callers should test with errors.Is.
var (
	ErrUnknownChannel      = errors.New("unknown channel")
	ErrNotAttached         = errors.New("channel not attached")
	ErrActuatorUnreachable = errors.New("actuator unreachable")
	ErrSensorChannel       = errors.New("invalid sensor channel")
	ErrSensorUnavailable   = errors.New("sensor unavailable")
)
