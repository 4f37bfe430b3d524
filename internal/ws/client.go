package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames; emergency payloads are small.
	maxMessageSize = 8 << 10

	sendBuffer = 32
)

// client is one user's websocket connection. Outbound frames go through
// the buffered send channel so hub broadcasts never block on a slow
// socket; a client whose buffer is full has frames dropped.
type client struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn

	// Identity resolved at handshake time, echoed into notifications so
	// recipients can render who raised an alert without a lookup.
	userName  string
	userPhone string

	send chan envelope
	once sync.Once
	done chan struct{}
}

func newClient(h *Hub, userID, userName, userPhone string, conn *websocket.Conn) *client {
	return &client{
		hub:       h,
		userID:    userID,
		userName:  userName,
		userPhone: userPhone,
		conn:      conn,
		send:      make(chan envelope, sendBuffer),
		done:      make(chan struct{}),
	}
}

// enqueue queues an outbound frame without blocking. Frames are dropped
// when the client cannot keep up or is closing.
func (c *client) enqueue(ev envelope) {
	select {
	case <-c.done:
	case c.send <- ev:
	default:
		log.Warn().Str("user_id", c.userID).Str("event", ev.Event).Msg("send buffer full, frame dropped")
	}
}

// close stops the pumps and closes the socket. Safe to call more than
// once.
func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump consumes inbound frames until the connection drops, then
// unregisters the client.
func (c *client) readPump() {
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("user_id", c.userID).Msg("websocket read error")
			}
			return
		}
		c.handle(msg)
	}
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle routes one inbound event. Unknown events are ignored so newer
// clients can speak to older servers.
func (c *client) handle(msg inbound) {
	switch msg.Event {
	case EventEmergencyAlert:
		var data emergencyAlertData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		notified := c.hub.BroadcastToUsers(data.ContactUserIDs, EventEmergencyNotify, map[string]any{
			"alert": data.Alert,
			"from": map[string]any{
				"id":    c.userID,
				"name":  c.userName,
				"phone": c.userPhone,
			},
			"timestamp": time.Now().UTC(),
		})
		c.enqueue(envelope{Event: EventAlertSent, Data: map[string]any{
			"success":  true,
			"notified": notified,
		}})

	case EventLocationUpdate:
		var data locationUpdateData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.AlertID == "" {
			return
		}
		// The sender follows their own alert room so later acknowledgements
		// and status changes reach them.
		c.hub.JoinAlertRoom(c.userID, data.AlertID)
		c.hub.BroadcastToRoom("alert-"+data.AlertID, EventLocationUpdate, map[string]any{
			"alert_id":  data.AlertID,
			"user_id":   c.userID,
			"latitude":  data.Latitude,
			"longitude": data.Longitude,
			"accuracy":  data.Accuracy,
			"timestamp": time.Now().UTC(),
		})

	case EventAcknowledgeAlert:
		var data acknowledgeAlertData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.AlertID == "" {
			return
		}
		c.hub.JoinAlertRoom(c.userID, data.AlertID)
		c.hub.BroadcastToRoom("alert-"+data.AlertID, EventAlertAcknowledged, map[string]any{
			"alert_id":        data.AlertID,
			"acknowledged_by": c.userID,
			"timestamp":       time.Now().UTC(),
		})

	case EventStatusUpdate:
		var data statusUpdateData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Status == "" {
			return
		}
		c.hub.broadcastExcept(c.userID, EventUserStatusUpdate, map[string]any{
			"user_id":   c.userID,
			"status":    data.Status,
			"timestamp": time.Now().UTC(),
		})

	default:
		log.Debug().Str("event", msg.Event).Str("user_id", c.userID).Msg("unhandled websocket event")
	}
}
