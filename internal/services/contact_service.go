// Package services – ContactService
//
// This file implements the ContactService, which manages each user's
// emergency contact directory. It validates and normalizes contact input,
// enforces ownership rules, rejects duplicate phone numbers per user, and
// coordinates repository operations for creating, listing, updating, and
// removing contacts.
//
// The duplicate-phone check is read-then-compare rather than a database
// constraint, so two concurrent adds of the same number can both land.
// That window is an accepted consistency gap.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
	"github.com/sentinel-app/sentinel-backend/internal/repo"
)

// ContactRepo defines the repository contract required by ContactService.
type ContactRepo interface {
	// CreateContact inserts a new contact row.
	CreateContact(ctx context.Context, db *gorm.DB, c *domain.EmergencyContact) (*domain.EmergencyContact, error)

	// ListContacts returns all contacts belonging to the user, ordered by
	// priority then recency.
	ListContacts(ctx context.Context, db *gorm.DB, userID string) ([]domain.EmergencyContact, error)

	// ListActiveContacts returns only the active contacts, same ordering.
	ListActiveContacts(ctx context.Context, db *gorm.DB, userID string) ([]domain.EmergencyContact, error)

	// GetContact fetches a contact by ID regardless of owner.
	GetContact(ctx context.Context, db *gorm.DB, id string) (*domain.EmergencyContact, error)

	// UpdateContact applies a partial column update to a contact.
	UpdateContact(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error

	// DeleteContact hard-deletes a contact row.
	DeleteContact(ctx context.Context, db *gorm.DB, id string) error

	// GetContactStats returns the per-user directory breakdown.
	GetContactStats(ctx context.Context, db *gorm.DB, userID string) (*repo.ContactStats, error)
}

// ContactInput carries the fields accepted when registering a contact.
type ContactInput struct {
	Name          string
	PhoneNumber   string
	Email         string
	Relationship  domain.Relationship
	PriorityOrder int
}

// ContactUpdate carries the optional fields of a partial contact update.
// Nil pointers mean "leave unchanged".
type ContactUpdate struct {
	Name          *string
	PhoneNumber   *string
	Email         *string
	Relationship  *domain.Relationship
	IsActive      *bool
	PriorityOrder *int
}

// ContactService provides directory operations over a user's emergency
// contacts. All methods enforce that the acting user owns the contact
// being read or mutated.
type ContactService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the contact repository used by this service.
	Repo ContactRepo
}

// NewContactService constructs a ContactService.
func NewContactService(db *gorm.DB, r ContactRepo) *ContactService {
	return &ContactService{DB: db, Repo: r}
}

// Add registers a new emergency contact for userID.
//
// Error semantics:
//   - ErrMissingContactFields when name or phone is blank after trimming.
//   - ErrInvalidRelationship when a non-empty relationship is unrecognized
//     (empty defaults to "other").
//   - ErrDuplicatePhone when the user already has a contact with the same
//     phone number.
func (s *ContactService) Add(ctx context.Context, userID string, in ContactInput) (*domain.EmergencyContact, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.PhoneNumber)
	if name == "" || phone == "" {
		return nil, ErrMissingContactFields
	}

	rel := in.Relationship
	if rel == "" {
		rel = domain.RelOther
	}
	if !rel.Valid() {
		return nil, ErrInvalidRelationship
	}

	if err := s.checkDuplicatePhone(ctx, userID, phone, ""); err != nil {
		return nil, err
	}

	priority := in.PriorityOrder
	if priority <= 0 {
		priority = 1
	}

	c := &domain.EmergencyContact{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          name,
		PhoneNumber:   phone,
		Email:         strings.TrimSpace(in.Email),
		Relationship:  rel,
		IsActive:      true,
		PriorityOrder: priority,
	}
	return s.Repo.CreateContact(ctx, s.DB, c)
}

// List returns every contact in the user's directory, active or not,
// ordered by priority then recency.
func (s *ContactService) List(ctx context.Context, userID string) ([]domain.EmergencyContact, error) {
	return s.Repo.ListContacts(ctx, s.DB, userID)
}

// ListActive returns only the contacts eligible for alert fan-out.
func (s *ContactService) ListActive(ctx context.Context, userID string) ([]domain.EmergencyContact, error) {
	return s.Repo.ListActiveContacts(ctx, s.DB, userID)
}

// Get returns a single contact owned by userID.
//
// Error semantics:
//   - ErrContactNotFound when no row exists.
//   - ErrContactAccessDenied when the row belongs to another user.
func (s *ContactService) Get(ctx context.Context, userID, id string) (*domain.EmergencyContact, error) {
	return s.owned(ctx, userID, id)
}

// Update applies a partial update to a contact owned by userID. Only the
// non-nil fields of upd are written; updated_at is always refreshed.
func (s *ContactService) Update(ctx context.Context, userID, id string, upd ContactUpdate) (*domain.EmergencyContact, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, ErrMissingContactFields
		}
		updates["name"] = name
	}
	if upd.PhoneNumber != nil {
		phone := strings.TrimSpace(*upd.PhoneNumber)
		if phone == "" {
			return nil, ErrMissingContactFields
		}
		if err := s.checkDuplicatePhone(ctx, userID, phone, id); err != nil {
			return nil, err
		}
		updates["phone_number"] = phone
	}
	if upd.Email != nil {
		updates["email"] = strings.TrimSpace(*upd.Email)
	}
	if upd.Relationship != nil {
		if !upd.Relationship.Valid() {
			return nil, ErrInvalidRelationship
		}
		updates["relationship"] = *upd.Relationship
	}
	if upd.IsActive != nil {
		updates["is_active"] = *upd.IsActive
	}
	if upd.PriorityOrder != nil && *upd.PriorityOrder > 0 {
		updates["priority_order"] = *upd.PriorityOrder
	}

	if len(updates) > 0 {
		if err := s.Repo.UpdateContact(ctx, s.DB, id, updates); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrContactNotFound
			}
			return nil, err
		}
	}
	return s.Repo.GetContact(ctx, s.DB, id)
}

// Remove hard-deletes a contact owned by userID. Alerts keep the contact's
// ID in their contacts_notified snapshot even after removal.
func (s *ContactService) Remove(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.Repo.DeleteContact(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrContactNotFound
		}
		return err
	}
	return nil
}

// Stats returns the total / active / inactive / by-relationship breakdown
// of the user's directory.
func (s *ContactService) Stats(ctx context.Context, userID string) (*repo.ContactStats, error) {
	return s.Repo.GetContactStats(ctx, s.DB, userID)
}

// owned fetches a contact and verifies userID is the owner.
func (s *ContactService) owned(ctx context.Context, userID, id string) (*domain.EmergencyContact, error) {
	c, err := s.Repo.GetContact(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	if c.UserID != userID {
		return nil, ErrContactAccessDenied
	}
	return c, nil
}

// checkDuplicatePhone scans the user's directory for another contact with
// the same phone number. excludeID skips the contact being updated.
func (s *ContactService) checkDuplicatePhone(ctx context.Context, userID, phone, excludeID string) error {
	existing, err := s.Repo.ListContacts(ctx, s.DB, userID)
	if err != nil {
		return err
	}
	for _, c := range existing {
		if c.ID != excludeID && c.PhoneNumber == phone {
			return ErrDuplicatePhone
		}
	}
	return nil
}
