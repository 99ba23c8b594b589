package models

import (
	"github.com/google/uuid"
)

// DocumentSequenceModel holds the last issued number of a per-tenant document series.
type DocumentSequenceModel struct {
	TenantID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name     string    `gorm:"type:varchar(50);primaryKey"`
	Value    int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}
