// Package ws implements the realtime presence and broadcast hub. Connected
// clients hold one websocket each; the hub tracks who is online, fans
// events out to personal and per-alert rooms, and relays the small set of
// client-driven emergency events.
package ws

import "encoding/json"

// Event names. Inbound events are sent by clients, outbound events by the
// hub. The names are part of the client protocol and must stay stable.
const (
	// Outbound.
	EventConnected         = "connected"
	EventEmergencyNotify   = "emergency-notification"
	EventAlertSent         = "alert-sent"
	EventAlertAcknowledged = "alert-acknowledged"
	EventAlertStatus       = "alert-status"
	EventUserStatusUpdate  = "user-status-update"

	// Inbound. location-update is relayed back out under the same name.
	EventEmergencyAlert   = "emergency-alert"
	EventLocationUpdate   = "location-update"
	EventAcknowledgeAlert = "acknowledge-alert"
	EventStatusUpdate     = "status-update"
)

// envelope is the wire frame: every message is a named event with a JSON
// payload.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// inbound is the partially-decoded client frame. Data stays raw until the
// event name selects a payload type.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// emergencyAlertData is the payload of the client-driven emergency-alert
// event. ContactUserIDs are account IDs of contacts who are themselves app
// users; offline targets are skipped.
type emergencyAlertData struct {
	ContactUserIDs []string       `json:"contact_user_ids"`
	Alert          map[string]any `json:"alert"`
}

// locationUpdateData is a live position report tied to an ongoing alert.
type locationUpdateData struct {
	AlertID   string   `json:"alert_id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// acknowledgeAlertData marks an alert as seen by a contact.
type acknowledgeAlertData struct {
	AlertID string `json:"alert_id"`
}

// statusUpdateData is a coarse user presence/safety status.
type statusUpdateData struct {
	Status string `json:"status"`
}
