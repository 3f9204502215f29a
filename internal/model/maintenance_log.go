package model

import "time"

// MaintenanceType classifies a maintenance action.
type MaintenanceType string

const (
	MaintenancePreventive MaintenanceType = "preventive"
	MaintenanceCorrective MaintenanceType = "corrective"
	MaintenancePredictive MaintenanceType = "predictive"
)

// Valid reports whether t is one of the recognized maintenance types.
func (t MaintenanceType) Valid() bool {
	switch t {
	case MaintenancePreventive, MaintenanceCorrective, MaintenancePredictive:
		return true
	}
	return false
}

// MaintenanceResult is the outcome of a maintenance action. A pending result
// marks the equipment as under maintenance until a later log closes it out.
type MaintenanceResult string

const (
	MaintenanceCompleted MaintenanceResult = "completed"
	MaintenancePending   MaintenanceResult = "pending"
	MaintenanceFailed    MaintenanceResult = "failed"
)

// Valid reports whether r is one of the recognized maintenance results.
func (r MaintenanceResult) Valid() bool {
	switch r {
	case MaintenanceCompleted, MaintenancePending, MaintenanceFailed:
		return true
	}
	return false
}

// MaintenanceLog records one maintenance action on the maintenance track.
// Immutable once appended. Only a completed log advances the track's
// last-maintenance date.
type MaintenanceLog struct {
	ID          int64  `gorm:"autoIncrement;primaryKey"`
	EquipmentID string `gorm:"size:36;index;not null"`

	Date          time.Time         `gorm:"not null;index"`
	Technician    string            `gorm:"size:256;not null"`
	Type          MaintenanceType   `gorm:"size:32;not null"`
	Description   string            `gorm:"not null"`
	Cost          float64           `gorm:"not null"`
	DowntimeHours float64           `gorm:"not null"`
	Result        MaintenanceResult `gorm:"size:32;not null"`

	CreatedAt time.Time
}
