package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Numeric stores a decimal without rounding it to a fixed scale.
// Postgres columns are unscaled NUMERIC; sqlite columns are TEXT because
// sqlite's NUMERIC affinity converts values to 64-bit floats.
type Numeric struct {
	decimal.Decimal
}

// NewNumeric wraps a domain decimal for persistence
func NewNumeric(d decimal.Decimal) Numeric {
	return Numeric{Decimal: d}
}

// GormDBDataType picks the column type per dialect for AutoMigrate
func (Numeric) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "sqlite" {
		return "text"
	}
	return "numeric"
}
