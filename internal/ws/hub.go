package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sentinel-app/sentinel-backend/internal/auth"
)

// UserDirectory resolves a connected user's display identity so relayed
// emergency notifications can carry who raised them. Implemented by the
// repo layer.
type UserDirectory interface {
	LookupUser(ctx context.Context, userID string) (name, phone string, err error)
}

// Hub owns all realtime state: the userID → client mapping and the room
// membership sets. One connection per user; a newer connection for the
// same user replaces the older one. All state is guarded by mu and never
// leaves the Hub.
type Hub struct {
	verifier *auth.Verifier
	users    UserDirectory
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]struct{}
}

// NewHub constructs a Hub that authenticates handshakes with v and
// resolves connecting users through users.
func NewHub(v *auth.Verifier, users UserDirectory) *Hub {
	return &Hub{
		verifier: v,
		users:    users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the app origin; CORS policy is
			// enforced at the HTTP layer, so the upgrade accepts any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: map[string]*client{},
		rooms:   map[string]map[string]struct{}{},
	}
}

// HandleWS is the gin handler for GET /ws. The bearer token is taken from
// the Authorization header or, for browser websocket clients that cannot
// set headers, the token query parameter. A failed verification, or a
// token whose user no longer exists, rejects the handshake before the
// upgrade.
func (h *Hub) HandleWS(c *gin.Context) {
	raw := auth.BearerToken(c.GetHeader("Authorization"))
	if raw == "" {
		raw = c.Query("token")
	}
	id, err := h.verifier.Verify(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":    "unauthorized",
			"message": "valid bearer token required",
		})
		return
	}
	name, phone, err := h.users.LookupUser(c.Request.Context(), id.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":    "unauthorized",
			"message": "user not found",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := newClient(h, id.UserID, name, phone, conn)
	h.register(cl)

	go cl.writePump()
	go cl.readPump()

	cl.enqueue(envelope{Event: EventConnected, Data: map[string]any{
		"user_id":   id.UserID,
		"timestamp": time.Now().UTC(),
	}})
}

// register installs cl as the connection for its user, displacing any
// previous connection for the same user.
func (h *Hub) register(cl *client) {
	h.mu.Lock()
	old := h.clients[cl.userID]
	h.clients[cl.userID] = cl
	h.joinLocked("user-"+cl.userID, cl.userID)
	h.mu.Unlock()

	if old != nil {
		old.close()
	}
	log.Debug().Str("user_id", cl.userID).Msg("websocket connected")
}

// unregister removes cl if it is still the current connection for its
// user. A client displaced by a newer connection must not tear down the
// replacement's state.
func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	if h.clients[cl.userID] == cl {
		delete(h.clients, cl.userID)
		for room, members := range h.rooms {
			delete(members, cl.userID)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()

	cl.close()
	log.Debug().Str("user_id", cl.userID).Msg("websocket disconnected")
}

// SendToUser delivers one event to a single user. It reports whether the
// user was online; offline users are skipped silently.
func (h *Hub) SendToUser(userID, event string, payload any) bool {
	h.mu.RLock()
	cl := h.clients[userID]
	h.mu.RUnlock()
	if cl == nil {
		return false
	}
	cl.enqueue(envelope{Event: event, Data: payload})
	return true
}

// BroadcastToUsers delivers one event to every listed user that is online
// and returns how many were reached.
func (h *Hub) BroadcastToUsers(userIDs []string, event string, payload any) int {
	n := 0
	for _, id := range userIDs {
		if h.SendToUser(id, event, payload) {
			n++
		}
	}
	return n
}

// BroadcastToRoom delivers one event to every online member of a room.
// Unknown rooms are a no-op.
func (h *Hub) BroadcastToRoom(room, event string, payload any) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[room]))
	for id := range h.rooms[room] {
		if cl := h.clients[id]; cl != nil {
			targets = append(targets, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		cl.enqueue(envelope{Event: event, Data: payload})
	}
}

// JoinAlertRoom subscribes a user to the room for one alert's live
// updates.
func (h *Hub) JoinAlertRoom(userID, alertID string) {
	h.mu.Lock()
	h.joinLocked("alert-"+alertID, userID)
	h.mu.Unlock()
}

func (h *Hub) joinLocked(room, userID string) {
	members, ok := h.rooms[room]
	if !ok {
		members = map[string]struct{}{}
		h.rooms[room] = members
	}
	members[userID] = struct{}{}
}

// ConnectedCount returns the number of users currently online.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ConnectedUsers returns the IDs of the users currently online.
func (h *Hub) ConnectedUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.clients))
	for id := range h.clients {
		out = append(out, id)
	}
	return out
}

// broadcastExcept sends an event to every online user other than userID.
func (h *Hub) broadcastExcept(userID, event string, payload any) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for id, cl := range h.clients {
		if id != userID {
			targets = append(targets, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		cl.enqueue(envelope{Event: event, Data: payload})
	}
}
