// Package notify implements the alert fan-out subsystem: given an alert and
// an ordered contact list, it attempts SMS and email delivery per contact and
// reports the outcome of every attempt.
//
// Delivery is best-effort by design. There is no durable queue, no retry,
// and no caller-initiated cancellation once a dispatch has started; outcomes
// exist as the returned attempt list and as log lines. The per-contact loop
// is sequential so the fixed inter-contact delay can act as provider-side
// rate-limit protection; a hung transport call therefore delays the
// remaining contacts of the same alert, which is a documented weakness, not
// a bug to fix here.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
)

// Channel identifies a delivery channel.
type Channel string

// Delivery channels.
const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Outcome classifies a single delivery attempt.
type Outcome string

// Attempt outcomes. Simulated means the channel had no configured
// transport; absence of configuration is never treated as a failure.
const (
	OutcomeSuccess   Outcome = "success"
	OutcomeSimulated Outcome = "simulated"
	OutcomeFailed    Outcome = "failed"
)

// DeliveryAttempt records the outcome of one channel attempt for one
// contact. Attempts are ephemeral: they live for the duration of a dispatch
// and are surfaced through the return value and logs only.
type DeliveryAttempt struct {
	AlertID   string  `json:"alert_id"`
	ContactID string  `json:"contact_id"`
	Channel   Channel `json:"channel"`
	Outcome   Outcome `json:"outcome"`
	MessageID string  `json:"message_id,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// SMSSender is the injected SMS capability. Send returns the provider
// message ID on success.
type SMSSender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// EmailSender is the injected email capability. Send returns the provider
// message ID on success.
type EmailSender interface {
	Send(ctx context.Context, to, subject, text, html string) (string, error)
}

var dispatchAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "alert_delivery_attempts_total",
		Help: "Delivery attempts by channel and outcome.",
	},
	[]string{"channel", "outcome"},
)

func init() {
	prometheus.MustRegister(dispatchAttempts)
}

// interContactDelay throttles the fan-out loop between contacts to stay
// under upstream provider rate limits. A design constant, not configuration.
const interContactDelay = 1 * time.Second

// Dispatcher fans out alert notifications across SMS and email. Construct
// one at process start with ready capability handles and share it by
// reference; it holds no per-dispatch state and is safe for concurrent use.
//
// A nil SMS or Email handle downgrades that channel to simulated success.
type Dispatcher struct {
	SMS   SMSSender
	Email EmailSender

	// sleep is the inter-contact throttle; tests replace it to avoid
	// real delays.
	sleep func(time.Duration)
}

// NewDispatcher returns a Dispatcher using the given capabilities. Either
// handle may be nil, in which case that channel is simulated.
func NewDispatcher(sms SMSSender, email EmailSender) *Dispatcher {
	return &Dispatcher{SMS: sms, Email: email, sleep: time.Sleep}
}

// Dispatch attempts delivery of alert to every contact, in the order given
// (callers pass contacts in priority order). For each contact it tries SMS,
// then email when the contact has an address, then waits the fixed
// inter-contact delay before moving on.
//
// A failure for one contact is recorded and logged but never aborts the
// remaining fan-out. Dispatch always runs to completion and returns one
// attempt per channel tried.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *domain.EmergencyAlert, contacts []domain.EmergencyContact, user *domain.User) []DeliveryAttempt {
	attempts := make([]DeliveryAttempt, 0, len(contacts)*2)

	smsBody := FormatSMS(alert, user)
	subject := fmt.Sprintf("EMERGENCY ALERT - %s needs help", user.FullName)
	emailText, emailHTML := FormatEmail(alert, user)

	for i, contact := range contacts {
		attempts = append(attempts, d.attempt(ctx, alert, contact, ChannelSMS, func() (string, error) {
			if d.SMS == nil {
				return "", errNotConfigured
			}
			return d.SMS.Send(ctx, contact.PhoneNumber, smsBody)
		}))

		if contact.Email != "" {
			attempts = append(attempts, d.attempt(ctx, alert, contact, ChannelEmail, func() (string, error) {
				if d.Email == nil {
					return "", errNotConfigured
				}
				return d.Email.Send(ctx, contact.Email, subject, emailText, emailHTML)
			}))
		}

		if i < len(contacts)-1 {
			d.sleep(interContactDelay)
		}
	}

	return attempts
}

// SendTest delivers a clearly marked test message to a single contact over
// SMS. Test sends never count toward real delivery statistics; the attempt
// is logged but not recorded in the dispatch metrics.
func (d *Dispatcher) SendTest(ctx context.Context, alert *domain.EmergencyAlert, contact domain.EmergencyContact, user *domain.User) error {
	body := FormatTestSMS(user)
	if d.SMS == nil {
		log.Info().
			Str("alert_id", alert.ID).
			Str("contact_id", contact.ID).
			Msg("sms transport not configured, test send simulated")
		return nil
	}
	if _, err := d.SMS.Send(ctx, contact.PhoneNumber, body); err != nil {
		log.Warn().Err(err).
			Str("alert_id", alert.ID).
			Str("contact_id", contact.ID).
			Msg("test sms failed")
		return err
	}
	return nil
}

// errNotConfigured marks a channel attempt against a nil capability.
// attempt() maps it to a simulated success instead of a failure.
var errNotConfigured = errors.New("transport not configured")

// attempt runs a single channel send and classifies the result. Panics from
// a transport implementation are contained here so one bad contact cannot
// take down the rest of the fan-out.
func (d *Dispatcher) attempt(ctx context.Context, alert *domain.EmergencyAlert, contact domain.EmergencyContact, ch Channel, send func() (string, error)) (a DeliveryAttempt) {
	a = DeliveryAttempt{AlertID: alert.ID, ContactID: contact.ID, Channel: ch}

	defer func() {
		if rec := recover(); rec != nil {
			a.Outcome = OutcomeFailed
			a.Error = fmt.Sprintf("panic: %v", rec)
			log.Error().
				Interface("panic", rec).
				Str("alert_id", alert.ID).
				Str("contact_id", contact.ID).
				Str("channel", string(ch)).
				Msg("delivery panic recovered")
		}
		dispatchAttempts.WithLabelValues(string(a.Channel), string(a.Outcome)).Inc()
	}()

	id, err := send()
	switch {
	case errors.Is(err, errNotConfigured):
		a.Outcome = OutcomeSimulated
		log.Info().
			Str("alert_id", alert.ID).
			Str("contact_id", contact.ID).
			Str("channel", string(ch)).
			Msg("transport not configured, delivery simulated")
	case err != nil:
		a.Outcome = OutcomeFailed
		a.Error = err.Error()
		log.Warn().Err(err).
			Str("alert_id", alert.ID).
			Str("contact_id", contact.ID).
			Str("channel", string(ch)).
			Msg("delivery failed")
	default:
		a.Outcome = OutcomeSuccess
		a.MessageID = id
		log.Info().
			Str("alert_id", alert.ID).
			Str("contact_id", contact.ID).
			Str("channel", string(ch)).
			Str("message_id", id).
			Msg("delivery sent")
	}
	return a
}
