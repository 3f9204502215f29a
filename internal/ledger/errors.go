package ledger

import "errors"

// Domain error kinds surfaced by the store. All of them are rejections that
// happen before any write: a failed call leaves the ledger unchanged.
var (
	// ErrNotFound is returned for operations on an unknown or deactivated
	// equipment id.
	ErrNotFound = errors.New("equipment not found")

	// ErrDuplicateSerialNumber is returned when registering a serial number
	// already held by an active equipment record.
	ErrDuplicateSerialNumber = errors.New("serial number already registered")

	// ErrNonPositiveFrequency is returned when a track frequency is zero or
	// negative.
	ErrNonPositiveFrequency = errors.New("track frequency must be positive")

	// ErrEquipmentUnavailable is returned when usage is logged while the
	// derived status at the usage start time is out of service or under
	// maintenance. A business-rule rejection, not a transient fault.
	ErrEquipmentUnavailable = errors.New("equipment unavailable for usage")

	// ErrNonMonotonicDate is returned when a maintenance or calibration log
	// is dated before the track's last recorded event.
	ErrNonMonotonicDate = errors.New("log date precedes track's last event")

	// ErrInvalidLog is returned for malformed log submissions (unknown enum
	// values, missing required fields, negative cost or downtime).
	ErrInvalidLog = errors.New("invalid log submission")
)
