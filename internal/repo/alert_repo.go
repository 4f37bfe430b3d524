// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// EmergencyAlert model.
//
// Alerts are append-only from the caller's perspective: CreateAlert is the
// only insert path, TransitionStatus is the only mutation path after that,
// and nothing here deletes rows. Concurrent transitions on the same alert
// are last-write-wins; this layer does not serialize them.
package repo

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
)

// CreateAlert inserts a new alert row. The caller supplies the populated
// model (UUID, snapshot, metadata); CreatedAt is set to UTC here.
func CreateAlert(ctx context.Context, db *gorm.DB, a *domain.EmergencyAlert) (*domain.EmergencyAlert, error) {
	a.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetAlert fetches an alert by ID. Returns ErrNotFound when missing.
// Ownership is checked by the caller so it can answer 403 vs 404 correctly.
func GetAlert(ctx context.Context, db *gorm.DB, id string) (*domain.EmergencyAlert, error) {
	var a domain.EmergencyAlert
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAlerts returns up to limit alerts for userID, newest first.
func ListAlerts(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.EmergencyAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.EmergencyAlert
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// TransitionStatus moves an alert into status and returns the refreshed row.
//
// Semantics:
//   - status validity (enum membership) is the caller's responsibility;
//     this function persists whatever it is handed.
//   - entering "acknowledged" stamps acknowledged_at; entering "resolved"
//     stamps resolved_at. Re-entering the same status overwrites the stamp.
//     Neither field is ever cleared by a later transition.
//   - extra metadata is merged key-by-key into the stored metadata map,
//     never replacing it wholesale.
//   - updated_at is always refreshed.
//
// The read-modify-write is not wrapped in a transaction; two concurrent
// transitions race and the later write wins.
func TransitionStatus(ctx context.Context, db *gorm.DB, id string, status domain.AlertStatus, extra map[string]any) (*domain.EmergencyAlert, error) {
	a, err := GetAlert(ctx, db, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	switch status {
	case domain.StatusAcknowledged:
		updates["acknowledged_at"] = now
	case domain.StatusResolved:
		updates["resolved_at"] = now
	}

	if len(extra) > 0 {
		merged := datatypes.JSONMap{}
		for k, v := range a.Metadata {
			merged[k] = v
		}
		for k, v := range extra {
			merged[k] = v
		}
		updates["metadata"] = merged
	}

	if err := db.WithContext(ctx).
		Model(&domain.EmergencyAlert{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return GetAlert(ctx, db, id)
}
