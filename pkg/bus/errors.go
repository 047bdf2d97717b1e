package bus

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNotConnected     = errors.New("bus is not connected")
	ErrAlreadyConnected = errors.New("bus is already connected")
	ErrNotFound         = errors.New("not found")
	ErrAddressMismatch  = errors.New("models disagree on register address")
	ErrWidth            = errors.New("unsupported register width")
	ErrValueRange       = errors.New("value out of range")
	ErrNormMode         = errors.New("normalization mode not implemented")
	ErrNotCalibrated    = errors.New("motor has no calibration")
	ErrDuplicateID      = errors.New("duplicate motor id")
)

// CommError is a connectivity failure: the transaction never round-tripped
// within the retry budget. Detail carries the transport's diagnostic text for
// the last attempt.
type CommError struct {
	Op       string // "ping", "sync read", ...
	Name     string // register name, if any
	Attempts int
	Status   CommStatus
	Detail   string
}

func (e *CommError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q failed after %d attempt(s): %s", e.Op, e.Name, e.Attempts, e.Detail)
	}
	return fmt.Sprintf("%s failed after %d attempt(s): %s", e.Op, e.Attempts, e.Detail)
}

// DeviceError is a fault the motor itself reported despite a successful
// transaction, e.g. an out-of-range goal or an overload condition. Retrying
// the same command would fault again, so the bus never retries these.
type DeviceError struct {
	Op     string
	ID     int
	Code   int
	Detail string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("motor %d reported error during %s: %s", e.ID, e.Op, e.Detail)
}

// IsCommError reports whether err is a connectivity failure.
func IsCommError(err error) bool {
	var ce *CommError
	return errors.As(err, &ce)
}

// IsDeviceError reports whether err is a device-reported fault.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}
