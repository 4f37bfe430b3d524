package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
)

type fakeSMS struct {
	sent []string // destinations in send order
	fail map[string]error
}

func (f *fakeSMS) Send(_ context.Context, to, _ string) (string, error) {
	if err, ok := f.fail[to]; ok {
		return "", err
	}
	f.sent = append(f.sent, to)
	return "SM" + uuid.NewString()[:8], nil
}

type fakeEmail struct {
	sent []string
	fail map[string]error
}

func (f *fakeEmail) Send(_ context.Context, to, _, _, _ string) (string, error) {
	if err, ok := f.fail[to]; ok {
		return "", err
	}
	f.sent = append(f.sent, to)
	return "EM" + uuid.NewString()[:8], nil
}

func testDispatcher(sms SMSSender, email EmailSender) *Dispatcher {
	d := NewDispatcher(sms, email)
	d.sleep = func(time.Duration) {} // no real throttling in tests
	return d
}

func testAlert() *domain.EmergencyAlert {
	return &domain.EmergencyAlert{
		ID:        uuid.NewString(),
		UserID:    "u1",
		AlertType: domain.AlertMedical,
		Status:    domain.StatusPending,
	}
}

func testUser() *domain.User {
	return &domain.User{ID: "u1", FullName: "Ada Example", PhoneNumber: "+15551230000"}
}

func contactsFixture() []domain.EmergencyContact {
	return []domain.EmergencyContact{
		{ID: "c1", UserID: "u1", Name: "A", PhoneNumber: "+15550000001"},
		{ID: "c2", UserID: "u1", Name: "B", PhoneNumber: "+15550000002", Email: "b@example.com"},
		{ID: "c3", UserID: "u1", Name: "C", PhoneNumber: "+15550000003", Email: "c@example.com"},
	}
}

func countBy(attempts []DeliveryAttempt, ch Channel, out Outcome) int {
	n := 0
	for _, a := range attempts {
		if a.Channel == ch && a.Outcome == out {
			n++
		}
	}
	return n
}

func TestDispatch_AllChannelsSucceed(t *testing.T) {
	sms := &fakeSMS{}
	email := &fakeEmail{}
	d := testDispatcher(sms, email)

	attempts := d.Dispatch(context.Background(), testAlert(), contactsFixture(), testUser())

	// 3 SMS + 2 email (only c2 and c3 have addresses)
	if len(attempts) != 5 {
		t.Fatalf("expected 5 attempts, got %d", len(attempts))
	}
	if got := countBy(attempts, ChannelSMS, OutcomeSuccess); got != 3 {
		t.Fatalf("sms successes = %d, want 3", got)
	}
	if got := countBy(attempts, ChannelEmail, OutcomeSuccess); got != 2 {
		t.Fatalf("email successes = %d, want 2", got)
	}
	for _, a := range attempts {
		if a.Outcome == OutcomeSuccess && a.MessageID == "" {
			t.Fatalf("success attempt missing message id: %+v", a)
		}
	}
}

func TestDispatch_PriorityOrderPreserved(t *testing.T) {
	sms := &fakeSMS{}
	d := testDispatcher(sms, nil)

	d.Dispatch(context.Background(), testAlert(), contactsFixture(), testUser())

	want := []string{"+15550000001", "+15550000002", "+15550000003"}
	if len(sms.sent) != len(want) {
		t.Fatalf("sms sends = %d, want %d", len(sms.sent), len(want))
	}
	for i, to := range want {
		if sms.sent[i] != to {
			t.Fatalf("send %d went to %s, want %s", i, sms.sent[i], to)
		}
	}
}

func TestDispatch_PartialFailureIsolation(t *testing.T) {
	sms := &fakeSMS{}
	email := &fakeEmail{fail: map[string]error{"b@example.com": errors.New("mailbox unavailable")}}
	d := testDispatcher(sms, email)

	attempts := d.Dispatch(context.Background(), testAlert(), contactsFixture(), testUser())

	// All 3 SMS attempts must still happen despite c2's email failing.
	if got := countBy(attempts, ChannelSMS, OutcomeSuccess); got != 3 {
		t.Fatalf("sms successes = %d, want 3 (failure must not abort fan-out)", got)
	}
	if got := countBy(attempts, ChannelEmail, OutcomeFailed); got != 1 {
		t.Fatalf("email failures = %d, want 1", got)
	}
	if got := countBy(attempts, ChannelEmail, OutcomeSuccess); got != 1 {
		t.Fatalf("email successes = %d, want 1", got)
	}
	for _, a := range attempts {
		if a.Outcome == OutcomeFailed && a.Error == "" {
			t.Fatalf("failed attempt missing error detail: %+v", a)
		}
	}
}

func TestDispatch_NilCapabilitiesSimulate(t *testing.T) {
	d := testDispatcher(nil, nil)

	attempts := d.Dispatch(context.Background(), testAlert(), contactsFixture(), testUser())

	if got := countBy(attempts, ChannelSMS, OutcomeSimulated); got != 3 {
		t.Fatalf("simulated sms = %d, want 3", got)
	}
	if got := countBy(attempts, ChannelEmail, OutcomeSimulated); got != 2 {
		t.Fatalf("simulated email = %d, want 2", got)
	}
	if got := countBy(attempts, ChannelSMS, OutcomeFailed) + countBy(attempts, ChannelEmail, OutcomeFailed); got != 0 {
		t.Fatalf("missing config must never count as failure, got %d failures", got)
	}
}

type panickySMS struct{}

func (panickySMS) Send(context.Context, string, string) (string, error) {
	panic("transport exploded")
}

func TestDispatch_TransportPanicContained(t *testing.T) {
	d := testDispatcher(panickySMS{}, nil)

	attempts := d.Dispatch(context.Background(), testAlert(), contactsFixture(), testUser())

	if got := countBy(attempts, ChannelSMS, OutcomeFailed); got != 3 {
		t.Fatalf("panicking transport should yield failed attempts, got %d", got)
	}
}

func TestDispatch_ThrottlesBetweenContacts(t *testing.T) {
	var delays []time.Duration
	d := NewDispatcher(&fakeSMS{}, nil)
	d.sleep = func(dur time.Duration) { delays = append(delays, dur) }

	d.Dispatch(context.Background(), testAlert(), contactsFixture(), testUser())

	// Delay between contacts only: N contacts -> N-1 sleeps of exactly 1s.
	if len(delays) != 2 {
		t.Fatalf("sleeps = %d, want 2", len(delays))
	}
	for _, dur := range delays {
		if dur != time.Second {
			t.Fatalf("inter-contact delay = %v, want 1s", dur)
		}
	}
}

func TestSendTest_SimulatedWithoutTransport(t *testing.T) {
	d := testDispatcher(nil, nil)
	err := d.SendTest(context.Background(), testAlert(), contactsFixture()[0], testUser())
	if err != nil {
		t.Fatalf("simulated test send must not error, got %v", err)
	}
}

func TestSendTest_UsesSMSOnly(t *testing.T) {
	sms := &fakeSMS{}
	email := &fakeEmail{}
	d := testDispatcher(sms, email)

	if err := d.SendTest(context.Background(), testAlert(), contactsFixture()[1], testUser()); err != nil {
		t.Fatalf("SendTest: %v", err)
	}
	if len(sms.sent) != 1 {
		t.Fatalf("expected exactly one test sms, got %d", len(sms.sent))
	}
	if len(email.sent) != 0 {
		t.Fatalf("test path must not send email, got %d", len(email.sent))
	}
}
