package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
	"github.com/sentinel-app/sentinel-backend/internal/notify"
	"github.com/sentinel-app/sentinel-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, autoPolice bool) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:          uuid.NewString(),
		Email:       fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		FullName:    "Ada Lovelace",
		PhoneNumber: "+15550001111",
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	s := &domain.UserSettings{
		ID:                uuid.NewString(),
		UserID:            u.ID,
		AutoContactPolice: autoPolice,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return u
}

func seedContact(t *testing.T, db *gorm.DB, userID, phone string, priority int, active bool) *domain.EmergencyContact {
	t.Helper()
	c := &domain.EmergencyContact{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          "Contact " + phone,
		PhoneNumber:   phone,
		Relationship:  domain.RelFriend,
		IsActive:      active,
		PriorityOrder: priority,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed contact: %v", err)
	}
	return c
}

// ----- Repo shims over the free functions -----

type contactRepoShim struct{}

func (contactRepoShim) CreateContact(ctx context.Context, db *gorm.DB, c *domain.EmergencyContact) (*domain.EmergencyContact, error) {
	return repo.CreateContact(ctx, db, c)
}

func (contactRepoShim) ListContacts(ctx context.Context, db *gorm.DB, userID string) ([]domain.EmergencyContact, error) {
	return repo.ListContacts(ctx, db, userID)
}

func (contactRepoShim) ListActiveContacts(ctx context.Context, db *gorm.DB, userID string) ([]domain.EmergencyContact, error) {
	return repo.ListActiveContacts(ctx, db, userID)
}

func (contactRepoShim) GetContact(ctx context.Context, db *gorm.DB, id string) (*domain.EmergencyContact, error) {
	return repo.GetContact(ctx, db, id)
}

func (contactRepoShim) UpdateContact(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	return repo.UpdateContact(ctx, db, id, updates)
}

func (contactRepoShim) DeleteContact(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteContact(ctx, db, id)
}

func (contactRepoShim) GetContactStats(ctx context.Context, db *gorm.DB, userID string) (*repo.ContactStats, error) {
	return repo.GetContactStats(ctx, db, userID)
}

type alertRepoShim struct{}

func (alertRepoShim) CreateAlert(ctx context.Context, db *gorm.DB, a *domain.EmergencyAlert) (*domain.EmergencyAlert, error) {
	return repo.CreateAlert(ctx, db, a)
}

func (alertRepoShim) GetAlert(ctx context.Context, db *gorm.DB, id string) (*domain.EmergencyAlert, error) {
	return repo.GetAlert(ctx, db, id)
}

func (alertRepoShim) ListAlerts(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.EmergencyAlert, error) {
	return repo.ListAlerts(ctx, db, userID, limit)
}

func (alertRepoShim) TransitionStatus(ctx context.Context, db *gorm.DB, id string, status domain.AlertStatus, extra map[string]any) (*domain.EmergencyAlert, error) {
	return repo.TransitionStatus(ctx, db, id, status, extra)
}

func (alertRepoShim) GetAlertStats(ctx context.Context, db *gorm.DB, userID string) (*repo.AlertStats, error) {
	return repo.GetAlertStats(ctx, db, userID)
}

type userRepoShim struct{}

func (userRepoShim) GetUserWithSettings(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUserWithSettings(ctx, db, id)
}

// ----- Fake notifier and hub -----

// fakeNotifier reports the configured outcome for every channel attempt
// and records what it was asked to deliver.
type fakeNotifier struct {
	mu sync.Mutex

	outcome notify.Outcome

	dispatchedAlert    *domain.EmergencyAlert
	dispatchedContacts []domain.EmergencyContact

	testContact *domain.EmergencyContact
	testErr     error
}

func (f *fakeNotifier) Dispatch(_ context.Context, alert *domain.EmergencyAlert, contacts []domain.EmergencyContact, _ *domain.User) []notify.DeliveryAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatchedAlert = alert
	f.dispatchedContacts = contacts

	out := f.outcome
	if out == "" {
		out = notify.OutcomeSuccess
	}
	var attempts []notify.DeliveryAttempt
	for _, c := range contacts {
		attempts = append(attempts, notify.DeliveryAttempt{
			AlertID: alert.ID, ContactID: c.ID, Channel: notify.ChannelSMS, Outcome: out,
		})
		if c.Email != "" {
			attempts = append(attempts, notify.DeliveryAttempt{
				AlertID: alert.ID, ContactID: c.ID, Channel: notify.ChannelEmail, Outcome: out,
			})
		}
	}
	return attempts
}

func (f *fakeNotifier) SendTest(_ context.Context, _ *domain.EmergencyAlert, contact domain.EmergencyContact, _ *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.testContact = &contact
	return f.testErr
}

type broadcastCall struct {
	room    string
	event   string
	payload any
}

type fakeHub struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (f *fakeHub) BroadcastToRoom(room, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcastCall{room: room, event: event, payload: payload})
}

// newAlertService wires an AlertService against the real repos with the
// fan-out executed inline so tests observe its effects deterministically.
func newAlertService(db *gorm.DB, n *fakeNotifier, hub *fakeHub) *AlertService {
	var b Broadcaster
	if hub != nil {
		b = hub
	}
	svc := NewAlertService(db, alertRepoShim{}, contactRepoShim{}, userRepoShim{}, n, b)
	svc.spawn = func(f func()) { f() }
	return svc
}
