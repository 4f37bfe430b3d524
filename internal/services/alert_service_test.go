package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
	"github.com/sentinel-app/sentinel-backend/internal/notify"
)

func TestTrigger_HappyPath(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, true)
	c1 := seedContact(t, db, u.ID, "+1", 1, true)
	c2 := seedContact(t, db, u.ID, "+2", 2, true)
	seedContact(t, db, u.ID, "+3", 3, false) // inactive, must be skipped

	n := &fakeNotifier{}
	hub := &fakeHub{}
	svc := newAlertService(db, n, hub)

	alert, err := svc.Trigger(context.Background(), u.ID, TriggerInput{
		AlertType: domain.AlertMedical,
		Message:   "need help",
		UserAgent: "sentinel-ios/1.2",
		ClientIP:  "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	if alert.Status != domain.StatusSent {
		t.Fatalf("expected sent, got %s", alert.Status)
	}
	if len(alert.ContactsNotified) != 2 ||
		alert.ContactsNotified[0] != c1.ID || alert.ContactsNotified[1] != c2.ID {
		t.Fatalf("snapshot wrong: %v", alert.ContactsNotified)
	}
	if !alert.PoliceContacted {
		t.Fatal("auto_contact_police setting not honored")
	}

	// The dispatcher received the active contacts in priority order.
	if len(n.dispatchedContacts) != 2 || n.dispatchedContacts[0].ID != c1.ID {
		t.Fatalf("dispatched contacts wrong: %+v", n.dispatchedContacts)
	}

	// The stored row carries provenance plus the merged delivery summary.
	stored, err := svc.Alerts.GetAlert(context.Background(), db, alert.ID)
	if err != nil {
		t.Fatalf("GetAlert: %v", err)
	}
	if stored.Status != domain.StatusSent {
		t.Fatalf("stored status %s", stored.Status)
	}
	if stored.Metadata["user_agent"] != "sentinel-ios/1.2" || stored.Metadata["ip"] != "203.0.113.9" {
		t.Fatalf("provenance missing: %v", stored.Metadata)
	}
	if _, ok := stored.Metadata["delivery"]; !ok {
		t.Fatalf("delivery summary missing: %v", stored.Metadata)
	}

	// Fan-out completion broadcast a status event to the alert room.
	if len(hub.calls) != 1 || hub.calls[0].room != "alert-"+alert.ID || hub.calls[0].event != "alert-status" {
		t.Fatalf("unexpected broadcasts: %+v", hub.calls)
	}
}

func TestTrigger_NoActiveContacts(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, false)
	seedContact(t, db, u.ID, "+1", 1, false)

	svc := newAlertService(db, &fakeNotifier{}, nil)
	if _, err := svc.Trigger(context.Background(), u.ID, TriggerInput{}); !errors.Is(err, ErrNoActiveContacts) {
		t.Fatalf("expected ErrNoActiveContacts, got %v", err)
	}

	// Nothing persisted.
	alerts, err := svc.List(context.Background(), u.ID, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected no rows, got %d", len(alerts))
	}
}

func TestTrigger_Validation(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, false)
	seedContact(t, db, u.ID, "+1", 1, true)
	svc := newAlertService(db, &fakeNotifier{}, nil)
	ctx := context.Background()

	if _, err := svc.Trigger(ctx, u.ID, TriggerInput{AlertType: "volcano"}); !errors.Is(err, ErrInvalidAlertType) {
		t.Fatalf("bad type: got %v", err)
	}
	if _, err := svc.Trigger(ctx, u.ID, TriggerInput{Message: strings.Repeat("x", 501)}); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("long message: got %v", err)
	}
	if _, err := svc.Trigger(ctx, uuid.NewString(), TriggerInput{}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user: got %v", err)
	}

	// Empty type defaults to general.
	alert, err := svc.Trigger(ctx, u.ID, TriggerInput{})
	if err != nil {
		t.Fatalf("default type: %v", err)
	}
	if alert.AlertType != domain.AlertGeneral {
		t.Fatalf("expected general, got %s", alert.AlertType)
	}
}

func TestTrigger_AllDeliveriesFailed(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, false)
	seedContact(t, db, u.ID, "+1", 1, true)

	svc := newAlertService(db, &fakeNotifier{outcome: notify.OutcomeFailed}, nil)
	alert, err := svc.Trigger(context.Background(), u.ID, TriggerInput{})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	stored, err := svc.Alerts.GetAlert(context.Background(), db, alert.ID)
	if err != nil {
		t.Fatalf("GetAlert: %v", err)
	}
	if stored.Status != domain.StatusFailed {
		t.Fatalf("expected failed after total delivery failure, got %s", stored.Status)
	}
}

func TestTrigger_ContactPoliceOverride(t *testing.T) {
	tests := []struct {
		name       string
		autoPolice bool
		override   *bool
		want       bool
	}{
		{"explicit true beats setting off", false, boolPtr(true), true},
		{"explicit false beats setting on", true, boolPtr(false), false},
		{"nil defers to setting", true, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			u := seedUser(t, db, tt.autoPolice)
			seedContact(t, db, u.ID, "+1", 1, true)

			svc := newAlertService(db, &fakeNotifier{}, nil)
			alert, err := svc.Trigger(context.Background(), u.ID, TriggerInput{
				ContactPolice: tt.override,
			})
			if err != nil {
				t.Fatalf("Trigger: %v", err)
			}
			if alert.PoliceContacted != tt.want {
				t.Fatalf("PoliceContacted = %v, want %v", alert.PoliceContacted, tt.want)
			}
		})
	}
}

func TestGet_SnapshotSurvivesContactDeletion(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, false)
	c1 := seedContact(t, db, u.ID, "+1", 1, true)
	c2 := seedContact(t, db, u.ID, "+2", 2, true)

	svc := newAlertService(db, &fakeNotifier{}, nil)
	ctx := context.Background()

	alert, err := svc.Trigger(ctx, u.ID, TriggerInput{})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	contacts := NewContactService(db, contactRepoShim{})
	if err := contacts.Remove(ctx, u.ID, c2.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	detail, err := svc.Get(ctx, u.ID, alert.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.ContactsNotified) != 2 {
		t.Fatalf("snapshot rewritten: %v", detail.ContactsNotified)
	}
	if len(detail.Contacts) != 1 || detail.Contacts[0].ID != c1.ID {
		t.Fatalf("enrichment should hold only surviving contacts: %+v", detail.Contacts)
	}
}

func TestGet_Ownership(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, false)
	seedContact(t, db, u.ID, "+1", 1, true)

	svc := newAlertService(db, &fakeNotifier{}, nil)
	ctx := context.Background()

	alert, _ := svc.Trigger(ctx, u.ID, TriggerInput{})

	if _, err := svc.Get(ctx, u.ID, uuid.NewString()); !errors.Is(err, ErrAlertNotFound) {
		t.Fatalf("missing alert: got %v", err)
	}
	if _, err := svc.Get(ctx, "someone-else", alert.ID); !errors.Is(err, ErrAlertAccessDenied) {
		t.Fatalf("foreign alert: got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, false)
	seedContact(t, db, u.ID, "+1", 1, true)

	hub := &fakeHub{}
	svc := newAlertService(db, &fakeNotifier{}, hub)
	ctx := context.Background()

	alert, _ := svc.Trigger(ctx, u.ID, TriggerInput{})
	hub.calls = nil // drop the fan-out broadcast

	if _, err := svc.UpdateStatus(ctx, u.ID, alert.ID, "eaten", ""); !errors.Is(err, ErrInvalidAlertStatus) {
		t.Fatalf("bad status: got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "someone-else", alert.ID, domain.StatusResolved, ""); !errors.Is(err, ErrAlertAccessDenied) {
		t.Fatalf("foreign update: got %v", err)
	}

	got, err := svc.UpdateStatus(ctx, u.ID, alert.ID, domain.StatusAcknowledged, "contact called back")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != domain.StatusAcknowledged || got.AcknowledgedAt == nil {
		t.Fatalf("acknowledgement not stamped: %+v", got)
	}
	if got.Metadata["notes"] != "contact called back" || got.Metadata["status_updated_by"] != u.ID {
		t.Fatalf("notes not merged: %v", got.Metadata)
	}

	if len(hub.calls) != 1 || hub.calls[0].event != "alert-status" || hub.calls[0].room != "alert-"+alert.ID {
		t.Fatalf("status broadcast missing: %+v", hub.calls)
	}
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, false)
	seedContact(t, db, u.ID, "+1", 1, true)

	svc := newAlertService(db, &fakeNotifier{}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Trigger(ctx, u.ID, TriggerInput{}); err != nil {
			t.Fatalf("Trigger %d: %v", i, err)
		}
	}

	stats, err := svc.Stats(ctx, u.ID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Sent != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestTestSystem(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, false)
	first := seedContact(t, db, u.ID, "+1", 1, true)
	seedContact(t, db, u.ID, "+2", 2, true)

	n := &fakeNotifier{}
	svc := newAlertService(db, n, nil)

	alert, err := svc.TestSystem(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("TestSystem: %v", err)
	}
	if n.testContact == nil || n.testContact.ID != first.ID {
		t.Fatalf("test should target the highest-priority contact, got %+v", n.testContact)
	}
	if alert.Status != domain.StatusSent {
		t.Fatalf("expected sent, got %s", alert.Status)
	}
	if alert.Metadata["is_test"] != true {
		t.Fatalf("is_test marker missing: %v", alert.Metadata)
	}
	if len(alert.ContactsNotified) != 1 || alert.ContactsNotified[0] != first.ID {
		t.Fatalf("snapshot wrong: %v", alert.ContactsNotified)
	}
}

func TestTestSystem_SendFailure(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, false)
	seedContact(t, db, u.ID, "+1", 1, true)

	svc := newAlertService(db, &fakeNotifier{testErr: errors.New("provider down")}, nil)
	alert, err := svc.TestSystem(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("TestSystem: %v", err)
	}
	if alert.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", alert.Status)
	}
	if alert.Metadata["test_error"] != "provider down" {
		t.Fatalf("error not recorded: %v", alert.Metadata)
	}
}

func TestTestSystem_NoContacts(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, false)

	svc := newAlertService(db, &fakeNotifier{}, nil)
	if _, err := svc.TestSystem(context.Background(), u.ID); !errors.Is(err, ErrNoActiveContacts) {
		t.Fatalf("expected ErrNoActiveContacts, got %v", err)
	}
}
