package model

import "time"

// CalibrationProvider identifies who performed a calibration.
type CalibrationProvider string

const (
	CalibrationInternal CalibrationProvider = "internal"
	CalibrationExternal CalibrationProvider = "external"
)

// Valid reports whether p is one of the recognized providers.
func (p CalibrationProvider) Valid() bool {
	return p == CalibrationInternal || p == CalibrationExternal
}

// CalibrationResult is the outcome of a calibration. Only a pass or
// conditional pass advances the calibration track; a fail leaves the track
// where it was and takes the equipment out of service until a later pass.
type CalibrationResult string

const (
	CalibrationPass            CalibrationResult = "pass"
	CalibrationFail            CalibrationResult = "fail"
	CalibrationConditionalPass CalibrationResult = "conditional_pass"
)

// Valid reports whether r is one of the recognized calibration results.
func (r CalibrationResult) Valid() bool {
	switch r {
	case CalibrationPass, CalibrationFail, CalibrationConditionalPass:
		return true
	}
	return false
}

// Passing reports whether r advances the calibration track.
func (r CalibrationResult) Passing() bool {
	return r == CalibrationPass || r == CalibrationConditionalPass
}

// CalibrationLog records one calibration event on the calibration track.
// Immutable once appended.
type CalibrationLog struct {
	ID          int64  `gorm:"autoIncrement;primaryKey"`
	EquipmentID string `gorm:"size:36;index;not null"`

	Date                 time.Time           `gorm:"not null;index"`
	Technician           string              `gorm:"size:256;not null"`
	Provider             CalibrationProvider `gorm:"size:32;not null"`
	ExternalProviderName string              `gorm:"size:256"`
	Result               CalibrationResult   `gorm:"size:32;not null"`
	CertificateNumber    string              `gorm:"size:128"`
	ValidUntil           time.Time

	CreatedAt time.Time
}
