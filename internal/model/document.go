package model

import "time"

// EquipmentDocument is an immutable metadata pointer to an externally stored
// document (manual, certificate scan, SOP). Informational only: it never
// affects derived status.
type EquipmentDocument struct {
	ID          int64  `gorm:"autoIncrement;primaryKey"`
	EquipmentID string `gorm:"size:36;index;not null"`

	Name       string    `gorm:"size:256;not null"`
	Type       string    `gorm:"size:64"`
	UploadDate time.Time `gorm:"not null"`
	URL        string    `gorm:"size:1024;not null"`

	CreatedAt time.Time
}
