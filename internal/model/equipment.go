package model

import "time"

// EquipmentStatus is the operational state of a piece of equipment. It is
// always derived from the ledger at read time; the only stored status is the
// manual override.
type EquipmentStatus string

const (
	StatusOperational         EquipmentStatus = "operational"
	StatusUnderMaintenance    EquipmentStatus = "under_maintenance"
	StatusOutOfService        EquipmentStatus = "out_of_service"
	StatusCalibrationRequired EquipmentStatus = "calibration_required"
)

// Valid reports whether s is one of the recognized statuses.
func (s EquipmentStatus) Valid() bool {
	switch s {
	case StatusOperational, StatusUnderMaintenance, StatusOutOfService, StatusCalibrationRequired:
		return true
	}
	return false
}

// Equipment is the registered record for one piece of lab equipment.
// Mutated only by appending logs (which may advance a track's last-event
// date), by setting/clearing the manual override, or by deactivation.
type Equipment struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:256;not null"`
	Model        string `gorm:"size:256"`
	SerialNumber string `gorm:"size:128;index;not null"`
	Manufacturer string `gorm:"size:256"`
	Location     string `gorm:"size:256;index"`
	Category     string `gorm:"size:128;index"`

	Specifications map[string]string `gorm:"serializer:json"`
	Notes          string

	// Calibration track.
	LastCalibrationDate      time.Time `gorm:"not null"`
	CalibrationFrequencyDays int       `gorm:"not null"`

	// Maintenance track.
	LastMaintenanceDate      time.Time `gorm:"not null"`
	MaintenanceFrequencyDays int       `gorm:"not null"`

	// ManualOverrideStatus, when set, wins over the derived status until cleared.
	ManualOverrideStatus *EquipmentStatus `gorm:"size:32"`

	Active    bool `gorm:"not null;default:true;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
