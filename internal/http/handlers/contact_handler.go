// Emergency contact HTTP handlers.
//
// This file exposes REST endpoints for the contact directory:
//   - POST   /contacts          (register)
//   - GET    /contacts          (list all)
//   - GET    /contacts/active   (list active only)
//   - GET    /contacts/stats    (directory breakdown)
//   - PUT    /contacts/{id}     (partial update)
//   - DELETE /contacts/{id}     (remove)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
	"github.com/sentinel-app/sentinel-backend/internal/repo"
	"github.com/sentinel-app/sentinel-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ContactService defines the directory operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context.
type ContactService interface {
	// Add registers a new contact for userID.
	Add(ctx context.Context, userID string, in services.ContactInput) (*domain.EmergencyContact, error)
	// List returns all contacts for userID.
	List(ctx context.Context, userID string) ([]domain.EmergencyContact, error)
	// ListActive returns the contacts eligible for fan-out.
	ListActive(ctx context.Context, userID string) ([]domain.EmergencyContact, error)
	// Update applies a partial update to a contact owned by userID.
	Update(ctx context.Context, userID, id string, upd services.ContactUpdate) (*domain.EmergencyContact, error)
	// Remove hard-deletes a contact owned by userID.
	Remove(ctx context.Context, userID, id string) error
	// Stats returns the directory breakdown for userID.
	Stats(ctx context.Context, userID string) (*repo.ContactStats, error)
}

// AlertService defines the alert lifecycle operations consumed by HTTP
// handlers (see alert_handler.go for the endpoints).
type AlertService interface {
	// Trigger raises a new alert and starts the notification fan-out.
	Trigger(ctx context.Context, userID string, in services.TriggerInput) (*domain.EmergencyAlert, error)
	// Get returns one alert with contact enrichment.
	Get(ctx context.Context, userID, alertID string) (*services.AlertDetail, error)
	// List returns the alert history, newest first.
	List(ctx context.Context, userID string, limit int) ([]domain.EmergencyAlert, error)
	// UpdateStatus transitions an alert's lifecycle state.
	UpdateStatus(ctx context.Context, userID, alertID string, status domain.AlertStatus, notes string) (*domain.EmergencyAlert, error)
	// Stats returns the per-status counts.
	Stats(ctx context.Context, userID string) (*repo.AlertStats, error)
	// TestSystem runs the single-contact delivery test.
	TestSystem(ctx context.Context, userID string) (*domain.EmergencyAlert, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for contacts and alerts behind
// abstract service interfaces.
type Handlers struct {
	contactSvc ContactService
	alertSvc   AlertService
}

// New constructs a Handlers instance bound to the given services.
func New(contactSvc ContactService, alertSvc AlertService) *Handlers {
	return &Handlers{contactSvc: contactSvc, alertSvc: alertSvc}
}

// userID extracts the authenticated user id from the Gin context (set by
// the auth middleware). Tests may use the X-User-ID header instead. An
// empty result means the request must be rejected.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

// requireUser resolves the acting user or writes a 401.
func requireUser(c *gin.Context) (string, bool) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return "", false
	}
	return uid, true
}

//
// DTOs
//

// CreateContactRequest is the JSON payload for registering a contact.
type CreateContactRequest struct {
	Name          string `json:"name" binding:"required" example:"Grace Hopper"`
	PhoneNumber   string `json:"phone_number" binding:"required" example:"+15550002222"`
	Email         string `json:"email" example:"grace@example.com"`
	Relationship  string `json:"relationship" example:"friend"`
	PriorityOrder int    `json:"priority_order" example:"1"`
}

// UpdateContactRequest is the JSON payload for a partial contact update.
// Omitted fields are left unchanged.
type UpdateContactRequest struct {
	Name          *string `json:"name,omitempty"`
	PhoneNumber   *string `json:"phone_number,omitempty"`
	Email         *string `json:"email,omitempty"`
	Relationship  *string `json:"relationship,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
	PriorityOrder *int    `json:"priority_order,omitempty"`
}

// ListContactsResponse wraps a contact listing.
type ListContactsResponse struct {
	Contacts []domain.EmergencyContact `json:"contacts"`
	Total    int                       `json:"total"`
}

//
// Handlers
//

// CreateContact godoc
// @ID          createContact
// @Summary     Register an emergency contact
// @Description Adds a contact to the caller's directory. Phone numbers must be unique per user.
// @Tags        Contacts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body body handlers.CreateContactRequest true "Contact payload"
//
// @Success     201  {object}  domain.EmergencyContact
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse "Duplicate phone number"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /contacts [post]
func (h *Handlers) CreateContact(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	contact, err := h.contactSvc.Add(c.Request.Context(), uid, services.ContactInput{
		Name:          req.Name,
		PhoneNumber:   req.PhoneNumber,
		Email:         req.Email,
		Relationship:  domain.Relationship(req.Relationship),
		PriorityOrder: req.PriorityOrder,
	})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, contact)
}

// ListContacts godoc
// @ID          listContacts
// @Summary     List emergency contacts
// @Description Returns the caller's full directory ordered by priority, then recency.
// @Tags        Contacts
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.ListContactsResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /contacts [get]
func (h *Handlers) ListContacts(c *gin.Context) {
	h.listContacts(c, false)
}

// ListActiveContacts godoc
// @ID          listActiveContacts
// @Summary     List active emergency contacts
// @Description Returns only the contacts that would be notified by an alert.
// @Tags        Contacts
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.ListContactsResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /contacts/active [get]
func (h *Handlers) ListActiveContacts(c *gin.Context) {
	h.listContacts(c, true)
}

func (h *Handlers) listContacts(c *gin.Context, activeOnly bool) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	list := h.contactSvc.List
	if activeOnly {
		list = h.contactSvc.ListActive
	}
	contacts, err := list(c.Request.Context(), uid)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, ListContactsResponse{Contacts: contacts, Total: len(contacts)})
}

// UpdateContact godoc
// @ID          updateContact
// @Summary     Update an emergency contact
// @Description Partially updates a contact owned by the caller.
// @Tags        Contacts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id   path  string                          true "Contact ID"
// @Param       body body  handlers.UpdateContactRequest   true "Fields to change"
//
// @Success     200  {object}  domain.EmergencyContact
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse "Unknown contact"
// @Failure     409  {object}  handlers.ErrorResponse "Duplicate phone number"
// @Router      /contacts/{id} [put]
func (h *Handlers) UpdateContact(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	upd := services.ContactUpdate{
		Name:          req.Name,
		PhoneNumber:   req.PhoneNumber,
		Email:         req.Email,
		IsActive:      req.IsActive,
		PriorityOrder: req.PriorityOrder,
	}
	if req.Relationship != nil {
		rel := domain.Relationship(*req.Relationship)
		upd.Relationship = &rel
	}

	contact, err := h.contactSvc.Update(c.Request.Context(), uid, c.Param("id"), upd)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, contact)
}

// DeleteContact godoc
// @ID          deleteContact
// @Summary     Remove an emergency contact
// @Description Hard-deletes a contact owned by the caller. Alert history keeps the contact's ID.
// @Tags        Contacts
// @Produce     json
// @Security    BearerAuth
//
// @Param       id path string true "Contact ID"
//
// @Success     204  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse "Unknown contact"
// @Router      /contacts/{id} [delete]
func (h *Handlers) DeleteContact(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.contactSvc.Remove(c.Request.Context(), uid, c.Param("id")); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// ContactStats godoc
// @ID          contactStats
// @Summary     Contact directory statistics
// @Description Returns total/active/inactive counts and the per-relationship breakdown.
// @Tags        Contacts
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  repo.ContactStats
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /contacts/stats [get]
func (h *Handlers) ContactStats(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	stats, err := h.contactSvc.Stats(c.Request.Context(), uid)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}
