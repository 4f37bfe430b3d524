// Package services – AlertService
//
// This file implements the AlertService, which owns the emergency alert
// lifecycle: triggering an alert (snapshot of active contacts, persistence,
// detached notification fan-out), status transitions with metadata notes,
// retrieval with contact enrichment, per-user statistics, and the system
// test path.
//
// Fan-out runs on a detached goroutine so the triggering request returns as
// soon as the alert row exists. The alert is moved to "sent" before the
// delivery outcome is known; once the dispatcher finishes, a delivery
// summary is merged into metadata and the alert is marked "failed" only
// when every attempt failed. Those late writes are last-write-wins against
// concurrent user transitions, which is an accepted race.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
	"github.com/sentinel-app/sentinel-backend/internal/notify"
	"github.com/sentinel-app/sentinel-backend/internal/repo"
)

// maxAlertMessageLen caps the free-text message by rune length.
const maxAlertMessageLen = 500

// fanOutTimeout bounds a single fan-out run. Generous: dispatch sleeps one
// second between contacts.
const fanOutTimeout = 2 * time.Minute

// AlertRepo defines the repository contract required by AlertService.
type AlertRepo interface {
	// CreateAlert inserts a new alert row.
	CreateAlert(ctx context.Context, db *gorm.DB, a *domain.EmergencyAlert) (*domain.EmergencyAlert, error)

	// GetAlert fetches an alert by ID regardless of owner.
	GetAlert(ctx context.Context, db *gorm.DB, id string) (*domain.EmergencyAlert, error)

	// ListAlerts returns the user's alerts, newest first, capped at limit.
	ListAlerts(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.EmergencyAlert, error)

	// TransitionStatus moves an alert to the given status, stamping
	// lifecycle timestamps and merging extra into metadata.
	TransitionStatus(ctx context.Context, db *gorm.DB, id string, status domain.AlertStatus, extra map[string]any) (*domain.EmergencyAlert, error)

	// GetAlertStats returns the per-status breakdown for the user.
	GetAlertStats(ctx context.Context, db *gorm.DB, userID string) (*repo.AlertStats, error)
}

// UserRepo defines the account lookup contract required by AlertService.
type UserRepo interface {
	// GetUserWithSettings fetches a user and their settings row.
	GetUserWithSettings(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)
}

// Notifier is the delivery capability consumed by AlertService. The
// concrete implementation is notify.Dispatcher.
type Notifier interface {
	// Dispatch notifies every contact in order and reports each attempt.
	Dispatch(ctx context.Context, alert *domain.EmergencyAlert, contacts []domain.EmergencyContact, user *domain.User) []notify.DeliveryAttempt

	// SendTest sends a single clearly-marked test message to one contact.
	SendTest(ctx context.Context, alert *domain.EmergencyAlert, contact domain.EmergencyContact, user *domain.User) error
}

// Broadcaster pushes realtime events to websocket rooms. Pushes are
// best-effort: offline subscribers are simply skipped.
type Broadcaster interface {
	BroadcastToRoom(room, event string, payload any)
}

// TriggerInput carries the fields accepted when raising an alert. UserAgent
// and ClientIP are request provenance recorded into alert metadata.
type TriggerInput struct {
	AlertType        domain.AlertType
	Message          string
	Latitude         *float64
	Longitude        *float64
	LocationAccuracy *float64
	Address          string

	// ContactPolice explicitly requests police involvement for this alert.
	// When nil the user's auto_contact_police setting decides.
	ContactPolice *bool

	UserAgent string
	ClientIP  string
}

// ContactSummary is the contact detail attached to an alert on read.
type ContactSummary struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	PhoneNumber  string              `json:"phone_number"`
	Relationship domain.Relationship `json:"relationship"`
}

// AlertDetail is an alert enriched with the details of the contacts that
// were in its notification snapshot and still exist.
type AlertDetail struct {
	*domain.EmergencyAlert
	Contacts []ContactSummary `json:"contacts"`
}

// AlertService coordinates the alert lifecycle across the repositories,
// the notification dispatcher, and the realtime hub.
type AlertService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Alerts is the alert repository.
	Alerts AlertRepo
	// Contacts is the contact repository, used for the fan-out snapshot
	// and read-side enrichment.
	Contacts ContactRepo
	// Users resolves the triggering account.
	Users UserRepo
	// Notifier performs SMS and email delivery.
	Notifier Notifier
	// Hub receives best-effort status broadcasts. May be nil.
	Hub Broadcaster

	// spawn runs the fan-out; replaced with a synchronous call in tests.
	spawn func(func())
}

// NewAlertService constructs an AlertService with detached fan-out.
func NewAlertService(db *gorm.DB, alerts AlertRepo, contacts ContactRepo, users UserRepo, n Notifier, hub Broadcaster) *AlertService {
	return &AlertService{
		DB:       db,
		Alerts:   alerts,
		Contacts: contacts,
		Users:    users,
		Notifier: n,
		Hub:      hub,
		spawn:    func(f func()) { go f() },
	}
}

// Trigger raises a new emergency alert for userID.
//
// The active contact list is snapshotted into the alert at creation time;
// later directory edits do not rewrite it. The alert is persisted with
// status pending, moved to sent, and the notification fan-out runs on a
// detached goroutine. The returned alert reflects the sent state.
//
// Error semantics:
//   - ErrInvalidAlertType for an unrecognized type (empty defaults to
//     general).
//   - ErrMessageTooLong when the message exceeds 500 runes.
//   - ErrUserNotFound when the acting account has no row.
//   - ErrNoActiveContacts when the directory has no active contacts;
//     nothing is persisted in that case.
func (s *AlertService) Trigger(ctx context.Context, userID string, in TriggerInput) (*domain.EmergencyAlert, error) {
	tr := otel.Tracer("services/AlertService")
	ctx, span := tr.Start(ctx, "Trigger",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("alert.type", string(in.AlertType)),
		),
	)
	defer span.End()

	atype := in.AlertType
	if atype == "" {
		atype = domain.AlertGeneral
	}
	if !atype.Valid() {
		return nil, ErrInvalidAlertType
	}
	msg := strings.TrimSpace(in.Message)
	if utf8.RuneCountInString(msg) > maxAlertMessageLen {
		return nil, ErrMessageTooLong
	}

	user, err := s.Users.GetUserWithSettings(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	contacts, err := s.Contacts.ListActiveContacts(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, ErrNoActiveContacts
	}

	snapshot := make([]string, 0, len(contacts))
	for _, c := range contacts {
		snapshot = append(snapshot, c.ID)
	}

	meta := datatypes.JSONMap{}
	if in.UserAgent != "" {
		meta["user_agent"] = in.UserAgent
	}
	if in.ClientIP != "" {
		meta["ip"] = in.ClientIP
	}

	police := user.Settings != nil && user.Settings.AutoContactPolice
	if in.ContactPolice != nil {
		police = *in.ContactPolice
	}

	alert := &domain.EmergencyAlert{
		ID:               uuid.NewString(),
		UserID:           userID,
		AlertType:        atype,
		Message:          msg,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		LocationAccuracy: in.LocationAccuracy,
		Address:          strings.TrimSpace(in.Address),
		Status:           domain.StatusPending,
		ContactsNotified: datatypes.NewJSONSlice(snapshot),
		PoliceContacted:  police,
		Metadata:         meta,
	}
	if _, err := s.Alerts.CreateAlert(ctx, s.DB, alert); err != nil {
		return nil, err
	}

	sent, err := s.Alerts.TransitionStatus(ctx, s.DB, alert.ID, domain.StatusSent, nil)
	if err != nil {
		return nil, err
	}

	s.spawn(func() { s.fanOut(sent, contacts, user) })

	return sent, nil
}

// fanOut runs the dispatcher for one alert and records the outcome. It is
// detached from the triggering request, so it uses its own context and
// logs rather than returns errors.
func (s *AlertService) fanOut(alert *domain.EmergencyAlert, contacts []domain.EmergencyContact, user *domain.User) {
	ctx, cancel := context.WithTimeout(context.Background(), fanOutTimeout)
	defer cancel()

	tr := otel.Tracer("services/AlertService")
	ctx, span := tr.Start(ctx, "fanOut",
		trace.WithAttributes(
			attribute.String("alert.id", alert.ID),
			attribute.Int("contacts", len(contacts)),
		),
	)
	defer span.End()

	attempts := s.Notifier.Dispatch(ctx, alert, contacts, user)

	var success, simulated, failed int
	for _, a := range attempts {
		switch a.Outcome {
		case notify.OutcomeSuccess:
			success++
		case notify.OutcomeSimulated:
			simulated++
		case notify.OutcomeFailed:
			failed++
		}
	}

	status := domain.StatusSent
	if len(attempts) > 0 && failed == len(attempts) {
		status = domain.StatusFailed
	}
	extra := map[string]any{
		"delivery": map[string]any{
			"attempts":  len(attempts),
			"success":   success,
			"simulated": simulated,
			"failed":    failed,
		},
	}

	updated, err := s.Alerts.TransitionStatus(ctx, s.DB, alert.ID, status, extra)
	if err != nil {
		log.Error().Err(err).Str("alert_id", alert.ID).Msg("record fan-out outcome")
		return
	}
	s.broadcastStatus(updated)

	log.Info().
		Str("alert_id", alert.ID).
		Int("contacts", len(contacts)).
		Int("success", success).
		Int("simulated", simulated).
		Int("failed", failed).
		Msg("alert fan-out finished")
}

// UpdateStatus moves an alert owned by userID to the given status. Notes,
// the acting user, and the transition time are merged into metadata. After
// the write a best-effort alert-status event is broadcast to the alert's
// room.
//
// Error semantics:
//   - ErrInvalidAlertStatus for a value outside the recognized set.
//   - ErrAlertNotFound / ErrAlertAccessDenied per ownership.
func (s *AlertService) UpdateStatus(ctx context.Context, userID, alertID string, status domain.AlertStatus, notes string) (*domain.EmergencyAlert, error) {
	if !status.Valid() {
		return nil, ErrInvalidAlertStatus
	}
	if _, err := s.owned(ctx, userID, alertID); err != nil {
		return nil, err
	}

	extra := map[string]any{
		"status_updated_by": userID,
		"status_updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if n := strings.TrimSpace(notes); n != "" {
		extra["notes"] = n
	}

	updated, err := s.Alerts.TransitionStatus(ctx, s.DB, alertID, status, extra)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	s.broadcastStatus(updated)
	return updated, nil
}

// Get returns an alert owned by userID, enriched with the still-existing
// contacts from its notification snapshot. Contacts deleted since the
// alert keep their ID in contacts_notified but are absent from Contacts.
func (s *AlertService) Get(ctx context.Context, userID, alertID string) (*AlertDetail, error) {
	alert, err := s.owned(ctx, userID, alertID)
	if err != nil {
		return nil, err
	}

	all, err := s.Contacts.ListContacts(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.EmergencyContact, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	detail := &AlertDetail{EmergencyAlert: alert, Contacts: []ContactSummary{}}
	for _, id := range alert.ContactsNotified {
		c, ok := byID[id]
		if !ok {
			continue
		}
		detail.Contacts = append(detail.Contacts, ContactSummary{
			ID:           c.ID,
			Name:         c.Name,
			PhoneNumber:  c.PhoneNumber,
			Relationship: c.Relationship,
		})
	}
	return detail, nil
}

// List returns the user's alert history, newest first, capped at limit.
func (s *AlertService) List(ctx context.Context, userID string, limit int) ([]domain.EmergencyAlert, error) {
	return s.Alerts.ListAlerts(ctx, s.DB, userID, limit)
}

// Stats returns the per-status alert counts for the user.
func (s *AlertService) Stats(ctx context.Context, userID string) (*repo.AlertStats, error) {
	return s.Alerts.GetAlertStats(ctx, s.DB, userID)
}

// TestSystem exercises the delivery path end to end without alarming the
// whole directory: a test alert row is created, a clearly-marked test
// message goes to the highest-priority active contact only, and the row is
// persisted as sent (or failed when the test send errors).
func (s *AlertService) TestSystem(ctx context.Context, userID string) (*domain.EmergencyAlert, error) {
	user, err := s.Users.GetUserWithSettings(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	contacts, err := s.Contacts.ListActiveContacts(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, ErrNoActiveContacts
	}
	first := contacts[0]

	alert := &domain.EmergencyAlert{
		ID:               uuid.NewString(),
		UserID:           userID,
		AlertType:        domain.AlertGeneral,
		Message:          "System test",
		Status:           domain.StatusPending,
		ContactsNotified: datatypes.NewJSONSlice([]string{first.ID}),
		Metadata:         datatypes.JSONMap{"is_test": true},
	}
	if _, err := s.Alerts.CreateAlert(ctx, s.DB, alert); err != nil {
		return nil, err
	}

	status := domain.StatusSent
	var extra map[string]any
	if err := s.Notifier.SendTest(ctx, alert, first, user); err != nil {
		status = domain.StatusFailed
		extra = map[string]any{"test_error": err.Error()}
	}
	return s.Alerts.TransitionStatus(ctx, s.DB, alert.ID, status, extra)
}

// broadcastStatus pushes an alert-status event to the alert's room. No-op
// without a hub.
func (s *AlertService) broadcastStatus(a *domain.EmergencyAlert) {
	if s.Hub == nil {
		return
	}
	s.Hub.BroadcastToRoom("alert-"+a.ID, "alert-status", map[string]any{
		"alert_id":   a.ID,
		"status":     a.Status,
		"updated_at": a.UpdatedAt,
	})
}

// owned fetches an alert and verifies userID is the owner.
func (s *AlertService) owned(ctx context.Context, userID, id string) (*domain.EmergencyAlert, error) {
	a, err := s.Alerts.GetAlert(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrAlertAccessDenied
	}
	return a, nil
}
