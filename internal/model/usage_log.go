package model

import "time"

// UsageLog records exclusive occupation of a piece of equipment for the
// half-open interval [StartTime, EndTime). Immutable once appended.
type UsageLog struct {
	ID          int64  `gorm:"autoIncrement;primaryKey"`
	EquipmentID string `gorm:"size:36;index;not null"`

	StartTime time.Time `gorm:"not null;index"`
	EndTime   time.Time `gorm:"not null"`

	Operator      string            `gorm:"size:256;not null"`
	TestReference string            `gorm:"size:256"`
	Parameters    map[string]string `gorm:"serializer:json"`
	Notes         string

	CreatedAt time.Time
}
