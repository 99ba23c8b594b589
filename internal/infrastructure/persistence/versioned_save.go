package persistence

import (
	"errors"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// errStaleVersion is returned when an update matched no row at the loaded version
var errStaleVersion = shared.NewDomainError(shared.CodeConcurrencyConflict,
	"the record was modified by another transaction")

// saveVersioned inserts model when loadedVersion is zero, otherwise updates
// every column of the row still at loadedVersion. Associations are never
// written here; callers synchronize child rows themselves.
func saveVersioned(tx *gorm.DB, model any, loadedVersion int) error {
	if loadedVersion == 0 {
		return tx.Omit(clause.Associations).Create(model).Error
	}

	result := tx.Model(model).
		Select("*").
		Omit("id", "tenant_id", "created_at", "created_by", clause.Associations).
		Where("version = ?", loadedVersion).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errStaleVersion
	}
	return nil
}

// syncChildren makes the child rows of parentID equal to rows: rows absent
// from keepIDs are deleted first, then every row in rows is upserted by id.
func syncChildren[T any](tx *gorm.DB, parentColumn string, parentID uuid.UUID, keepIDs []uuid.UUID, rows []T) error {
	del := tx.Where(parentColumn+" = ?", parentID)
	if len(keepIDs) > 0 {
		del = del.Where("id NOT IN ?", keepIDs)
	}
	var zero T
	if err := del.Delete(&zero).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

// translateNotFound maps gorm.ErrRecordNotFound to shared.ErrNotFound
func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// forUpdate adds a row lock. The sqlite dialect drops it.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
