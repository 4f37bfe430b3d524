// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// EmergencyContact model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Ownership rules and the duplicate-phone
// check live in services.ContactService, which wraps these functions.
//
// Error semantics:
//   - When a contact is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateContact inserts a new emergency contact row. The caller supplies the
// populated model (including its UUID); CreatedAt is set to UTC here.
func CreateContact(ctx context.Context, db *gorm.DB, c *domain.EmergencyContact) (*domain.EmergencyContact, error) {
	c.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ListContacts returns all contacts belonging to userID ordered by priority
// ascending, then recency descending. It returns an empty slice if the user
// has no contacts.
func ListContacts(ctx context.Context, db *gorm.DB, userID string) ([]domain.EmergencyContact, error) {
	var out []domain.EmergencyContact
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("priority_order asc, created_at desc").
		Find(&out).Error
	return out, err
}

// ListActiveContacts returns the contacts considered for alert fan-out:
// those with is_active = true, in the same ordering as ListContacts.
func ListActiveContacts(ctx context.Context, db *gorm.DB, userID string) ([]domain.EmergencyContact, error) {
	var out []domain.EmergencyContact
	err := db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("priority_order asc, created_at desc").
		Find(&out).Error
	return out, err
}

// GetContact fetches a contact by its ID regardless of owner. Callers that
// enforce ownership compare UserID themselves so they can distinguish
// "missing" from "not yours".
func GetContact(ctx context.Context, db *gorm.DB, id string) (*domain.EmergencyContact, error) {
	var c domain.EmergencyContact
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateContact applies the given column updates to a contact and refreshes
// updated_at. If no rows are affected it returns ErrNotFound.
func UpdateContact(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.EmergencyContact{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteContact hard-deletes a contact row. There is no tombstone: alert
// snapshots keep the ID, so history survives the delete.
func DeleteContact(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.EmergencyContact{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActiveContacts returns the number of active contacts for userID.
func CountActiveContacts(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.EmergencyContact{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&total).Error
	return total, err
}
