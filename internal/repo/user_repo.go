// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read access to the users table, which
// is owned by the auth subsystem; the alerting core only ever reads it.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
)

// GetUser fetches a user by ID. Returns ErrNotFound when missing.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Directory adapts the users table to the realtime hub's identity lookup,
// so relayed emergency notifications can name who raised them.
type Directory struct {
	DB *gorm.DB
}

// LookupUser resolves a user's display name and callback number.
func (d Directory) LookupUser(ctx context.Context, id string) (name, phone string, err error) {
	u, err := GetUser(ctx, d.DB, id)
	if err != nil {
		return "", "", err
	}
	return u.FullName, u.PhoneNumber, nil
}

// GetUserWithSettings fetches a user and preloads the one-to-one settings
// record. The settings pointer is nil when no row exists yet.
func GetUserWithSettings(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Preload("Settings").
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}
