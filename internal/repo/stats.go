// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate/statistics queries behind
// the /alerts/stats and /contacts/stats endpoints. Each function is
// context-aware and safe to call from services or handlers.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
)

// AlertStats holds per-status alert counts for one user. Total is the row
// count across all statuses, so it always equals the sum of the others plus
// any pending rows.
type AlertStats struct {
	Total        int64 `json:"total"`
	Pending      int64 `json:"pending"`
	Sent         int64 `json:"sent"`
	Delivered    int64 `json:"delivered"`
	Acknowledged int64 `json:"acknowledged"`
	Resolved     int64 `json:"resolved"`
	Failed       int64 `json:"failed"`
}

// GetAlertStats returns per-status counts for a user's alerts. A single
// grouped query keeps the aggregate consistent with enumeration at the same
// point in time.
func GetAlertStats(ctx context.Context, db *gorm.DB, userID string) (*AlertStats, error) {
	var rows []struct {
		Status domain.AlertStatus
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.EmergencyAlert{}).
		Select("status, count(*) as n").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &AlertStats{}
	for _, r := range rows {
		stats.Total += r.N
		switch r.Status {
		case domain.StatusPending:
			stats.Pending = r.N
		case domain.StatusSent:
			stats.Sent = r.N
		case domain.StatusDelivered:
			stats.Delivered = r.N
		case domain.StatusAcknowledged:
			stats.Acknowledged = r.N
		case domain.StatusResolved:
			stats.Resolved = r.N
		case domain.StatusFailed:
			stats.Failed = r.N
		}
	}
	return stats, nil
}

// ContactStats holds contact counts for one user, including the breakdown
// by relationship.
type ContactStats struct {
	Total          int64            `json:"total"`
	Active         int64            `json:"active"`
	Inactive       int64            `json:"inactive"`
	ByRelationship map[string]int64 `json:"by_relationship"`
}

// GetContactStats returns total/active/inactive counts and the
// per-relationship breakdown for a user's contacts.
func GetContactStats(ctx context.Context, db *gorm.DB, userID string) (*ContactStats, error) {
	stats := &ContactStats{ByRelationship: map[string]int64{}}

	var rows []struct {
		Relationship domain.Relationship
		Active       bool `gorm:"column:is_active"`
		N            int64
	}
	err := db.WithContext(ctx).
		Model(&domain.EmergencyContact{}).
		Select("relationship, is_active, count(*) as n").
		Where("user_id = ?", userID).
		Group("relationship, is_active").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		stats.Total += r.N
		if r.Active {
			stats.Active += r.N
		} else {
			stats.Inactive += r.N
		}
		stats.ByRelationship[string(r.Relationship)] += r.N
	}
	return stats, nil
}
