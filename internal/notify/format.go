// Package notify – message formatting.
//
// SMS and email bodies carry the same information: alert-type label, sender
// name and phone, optional free-text message, optional coordinates with a
// maps link and address, and a timestamp. The HTML email adds structure on
// top (header, alert-type badge, call-to-action links, location panel).
package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
)

// smsLabels maps alert types to the uppercase labels used in SMS bodies.
var smsLabels = map[domain.AlertType]string{
	domain.AlertGeneral:         "GENERAL EMERGENCY",
	domain.AlertMedical:         "MEDICAL EMERGENCY",
	domain.AlertViolence:        "VIOLENCE/ASSAULT",
	domain.AlertHarassment:      "HARASSMENT",
	domain.AlertStalking:        "STALKING",
	domain.AlertAccident:        "ACCIDENT",
	domain.AlertFire:            "FIRE EMERGENCY",
	domain.AlertNaturalDisaster: "NATURAL DISASTER",
}

// emailLabels maps alert types to the title-case labels used in email.
var emailLabels = map[domain.AlertType]string{
	domain.AlertGeneral:         "General Emergency",
	domain.AlertMedical:         "Medical Emergency",
	domain.AlertViolence:        "Violence/Assault",
	domain.AlertHarassment:      "Harassment",
	domain.AlertStalking:        "Stalking",
	domain.AlertAccident:        "Accident",
	domain.AlertFire:            "Fire Emergency",
	domain.AlertNaturalDisaster: "Natural Disaster",
}

var titleCaser = cases.Title(language.English)

// alertLabel returns the display label for t, falling back to a title-cased
// rendering of the raw value for types the table does not know.
func alertLabel(t domain.AlertType, labels map[domain.AlertType]string, fallback string) string {
	if l, ok := labels[t]; ok {
		return l
	}
	if t == "" {
		return fallback
	}
	l := titleCaser.String(strings.ReplaceAll(string(t), "_", " "))
	if fallback == strings.ToUpper(fallback) {
		return strings.ToUpper(l)
	}
	return l
}

// mapsLink renders a Google Maps URL for the given coordinates.
func mapsLink(lat, lng float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%v,%v", lat, lng)
}

// FormatSMS renders the plain-text emergency message sent over SMS (and as
// the text part of the email).
func FormatSMS(alert *domain.EmergencyAlert, user *domain.User) string {
	var b strings.Builder

	b.WriteString("EMERGENCY ALERT\n\n")
	b.WriteString(alertLabel(alert.AlertType, smsLabels, "EMERGENCY"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "From: %s\n", user.FullName)
	if user.PhoneNumber != "" {
		fmt.Fprintf(&b, "Phone: %s\n", user.PhoneNumber)
	}
	if alert.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", alert.Message)
	}
	if alert.Latitude != nil && alert.Longitude != nil {
		b.WriteString("\nLocation:\n")
		fmt.Fprintf(&b, "%v, %v\n", *alert.Latitude, *alert.Longitude)
		fmt.Fprintf(&b, "Maps: %s\n", mapsLink(*alert.Latitude, *alert.Longitude))
		if alert.Address != "" {
			fmt.Fprintf(&b, "Address: %s\n", alert.Address)
		}
	}
	fmt.Fprintf(&b, "\nTime: %s\n", formatTimestamp(alert.CreatedAt))
	b.WriteString("\nThis is an automated emergency alert from Sentinel Safety App. Please respond immediately.")

	return b.String()
}

// FormatTestSMS renders the body used by the single-contact test path. The
// message is explicitly marked as a test so recipients never mistake it for
// a live alert.
func FormatTestSMS(user *domain.User) string {
	return fmt.Sprintf(
		"TEST ALERT from Sentinel Safety App\n\nThis is a test message from %s.\n\nYour emergency contact system is working correctly. No action required.\n\nSent at: %s",
		user.FullName, formatTimestamp(time.Now()),
	)
}

// FormatEmail renders the text and HTML bodies for the emergency email.
// Both carry equivalent information; the HTML version adds presentational
// structure.
func FormatEmail(alert *domain.EmergencyAlert, user *domain.User) (text, htmlBody string) {
	text = FormatSMS(alert, user)

	label := alertLabel(alert.AlertType, emailLabels, "Emergency")

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>Emergency Alert</title></head><body style="font-family:Arial,sans-serif;background-color:#f5f5f5;margin:0;padding:20px">`)
	b.WriteString(`<div style="max-width:600px;margin:0 auto;background-color:#fff;border-radius:8px;overflow:hidden">`)

	// Header
	b.WriteString(`<div style="background-color:#E53E3E;color:#fff;padding:20px;text-align:center"><h1>EMERGENCY ALERT</h1><p>Immediate attention required</p></div>`)

	b.WriteString(`<div style="padding:30px">`)
	fmt.Fprintf(&b, `<div style="background-color:#FED7D7;color:#C53030;padding:10px;border-radius:5px;font-weight:bold;text-align:center">%s</div>`, html.EscapeString(strings.ToUpper(label)))

	infoRow(&b, "From", user.FullName)
	if user.PhoneNumber != "" {
		fmt.Fprintf(&b, `<div style="margin:15px 0;padding:10px;background-color:#f8f9fa;border-left:4px solid #E53E3E"><strong>Phone:</strong> <a href="tel:%s">%s</a></div>`,
			html.EscapeString(user.PhoneNumber), html.EscapeString(user.PhoneNumber))
	}
	if alert.Message != "" {
		infoRow(&b, "Message", alert.Message)
	}
	infoRow(&b, "Time", formatTimestamp(alert.CreatedAt))

	if alert.Latitude != nil && alert.Longitude != nil {
		b.WriteString(`<div style="background-color:#E6FFFA;border:1px solid #38A169;border-radius:5px;padding:15px;margin:20px 0"><h3>Location Information</h3>`)
		fmt.Fprintf(&b, `<p><strong>Coordinates:</strong> %v, %v</p>`, *alert.Latitude, *alert.Longitude)
		if alert.Address != "" {
			fmt.Fprintf(&b, `<p><strong>Address:</strong> %s</p>`, html.EscapeString(alert.Address))
		}
		fmt.Fprintf(&b, `<p><a href="%s" style="display:inline-block;background-color:#E53E3E;color:#fff;padding:12px 24px;text-decoration:none;border-radius:5px">View on Google Maps</a></p></div>`,
			mapsLink(*alert.Latitude, *alert.Longitude))
	}

	// Actions: call the sender, call emergency services.
	b.WriteString(`<div style="text-align:center;margin:30px 0">`)
	if user.PhoneNumber != "" {
		fmt.Fprintf(&b, `<a href="tel:%s" style="display:inline-block;background-color:#E53E3E;color:#fff;padding:12px 24px;text-decoration:none;border-radius:5px;margin:10px 5px">Call %s</a>`,
			html.EscapeString(user.PhoneNumber), html.EscapeString(user.FullName))
	}
	b.WriteString(`<a href="tel:911" style="display:inline-block;background-color:#E53E3E;color:#fff;padding:12px 24px;text-decoration:none;border-radius:5px;margin:10px 5px">Call Emergency Services</a></div>`)

	b.WriteString(`</div>`)
	b.WriteString(`<div style="background-color:#f8f9fa;padding:20px;text-align:center;font-size:12px;color:#666"><p>This is an automated emergency alert from Sentinel Safety App.</p><p>Please respond immediately or contact emergency services if needed.</p></div>`)
	b.WriteString(`</div></body></html>`)

	return text, b.String()
}

// infoRow appends one highlighted key/value row to the HTML body.
func infoRow(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, `<div style="margin:15px 0;padding:10px;background-color:#f8f9fa;border-left:4px solid #E53E3E"><strong>%s:</strong> %s</div>`,
		html.EscapeString(key), html.EscapeString(value))
}

// formatTimestamp renders a human-readable local timestamp.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Local().Format("Jan 2, 2006 3:04:05 PM MST")
}
