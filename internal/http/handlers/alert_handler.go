// Emergency alert HTTP handlers.
//
// This file exposes REST endpoints for the alert lifecycle:
//   - POST /alerts              (trigger)
//   - GET  /alerts              (history)
//   - GET  /alerts/{id}         (detail with contact enrichment)
//   - PUT  /alerts/{id}/status  (lifecycle transition)
//   - GET  /alerts/stats        (per-status counts)
//   - POST /alerts/test         (single-contact system test)
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sentinel-app/sentinel-backend/internal/domain"
	"github.com/sentinel-app/sentinel-backend/internal/services"
)

//
// DTOs
//

// TriggerAlertRequest is the JSON payload for raising an alert.
type TriggerAlertRequest struct {
	AlertType string   `json:"alert_type" example:"medical"`
	Message   string   `json:"message" example:"I fell, please check on me"`
	Latitude  *float64 `json:"latitude,omitempty" example:"40.7128"`
	Longitude *float64 `json:"longitude,omitempty" example:"-74.0060"`
	Accuracy  *float64 `json:"accuracy,omitempty" example:"12.5"`
	Address   string   `json:"address,omitempty" example:"350 5th Ave, New York"`
	// ContactPolice overrides the account's auto_contact_police setting
	// for this alert when present.
	ContactPolice *bool `json:"contact_police,omitempty"`
}

// UpdateAlertStatusRequest is the JSON payload for a lifecycle transition.
type UpdateAlertStatusRequest struct {
	Status string `json:"status" binding:"required" example:"acknowledged"`
	Notes  string `json:"notes" example:"spoke to her on the phone"`
}

// ListAlertsResponse wraps an alert history page.
type ListAlertsResponse struct {
	Alerts []domain.EmergencyAlert `json:"alerts"`
	Total  int                     `json:"total"`
}

//
// Handlers
//

// TriggerAlert godoc
// @ID          triggerAlert
// @Summary     Trigger an emergency alert
// @Description Snapshots the active contacts, persists the alert, and starts the notification fan-out in the background. Returns as soon as the alert record exists.
// @Tags        Alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body body handlers.TriggerAlertRequest true "Alert payload"
//
// @Success     201  {object}  domain.EmergencyAlert
// @Failure     400  {object}  handlers.ErrorResponse "Bad request or no active contacts"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /alerts [post]
func (h *Handlers) TriggerAlert(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req TriggerAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	alert, err := h.alertSvc.Trigger(c.Request.Context(), uid, services.TriggerInput{
		AlertType:        domain.AlertType(req.AlertType),
		Message:          req.Message,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		LocationAccuracy: req.Accuracy,
		Address:          req.Address,
		ContactPolice:    req.ContactPolice,
		UserAgent:        c.Request.UserAgent(),
		ClientIP:         c.ClientIP(),
	})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, alert)
}

// ListAlerts godoc
// @ID          listAlerts
// @Summary     List alert history
// @Description Returns the caller's alerts, newest first. The limit query parameter caps the page (default 50, max 200).
// @Tags        Alerts
// @Produce     json
// @Security    BearerAuth
//
// @Param       limit query int false "Maximum rows returned" minimum(1) maximum(200) default(50)
//
// @Success     200  {object}  handlers.ListAlertsResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /alerts [get]
func (h *Handlers) ListAlerts(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 200 {
		limit = 200
	}

	alerts, err := h.alertSvc.List(c.Request.Context(), uid, limit)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, ListAlertsResponse{Alerts: alerts, Total: len(alerts)})
}

// GetAlert godoc
// @ID          getAlert
// @Summary     Get one alert
// @Description Returns an alert with the still-existing contacts from its notification snapshot.
// @Tags        Alerts
// @Produce     json
// @Security    BearerAuth
//
// @Param       id path string true "Alert ID"
//
// @Success     200  {object}  services.AlertDetail
// @Failure     403  {object}  handlers.ErrorResponse "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse "Unknown alert"
// @Router      /alerts/{id} [get]
func (h *Handlers) GetAlert(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	detail, err := h.alertSvc.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, detail)
}

// UpdateAlertStatus godoc
// @ID          updateAlertStatus
// @Summary     Transition an alert's status
// @Description Moves the alert to the given status. Entering acknowledged or resolved stamps the matching timestamp; notes are merged into metadata.
// @Tags        Alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id   path  string                             true "Alert ID"
// @Param       body body  handlers.UpdateAlertStatusRequest  true "Target status"
//
// @Success     200  {object}  domain.EmergencyAlert
// @Failure     400  {object}  handlers.ErrorResponse "Unknown status value"
// @Failure     403  {object}  handlers.ErrorResponse "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse "Unknown alert"
// @Router      /alerts/{id}/status [put]
func (h *Handlers) UpdateAlertStatus(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req UpdateAlertStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	alert, err := h.alertSvc.UpdateStatus(c.Request.Context(), uid, c.Param("id"),
		domain.AlertStatus(req.Status), req.Notes)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, alert)
}

// AlertStats godoc
// @ID          alertStats
// @Summary     Alert statistics
// @Description Returns the caller's per-status alert counts.
// @Tags        Alerts
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  repo.AlertStats
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /alerts/stats [get]
func (h *Handlers) AlertStats(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	stats, err := h.alertSvc.Stats(c.Request.Context(), uid)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// TestAlert godoc
// @ID          testAlert
// @Summary     Test the alert system
// @Description Sends a clearly-marked test message to the caller's highest-priority active contact and records a test alert.
// @Tags        Alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Success     201  {object}  domain.EmergencyAlert
// @Failure     400  {object}  handlers.ErrorResponse "No active contacts"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /alerts/test [post]
func (h *Handlers) TestAlert(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	alert, err := h.alertSvc.TestSystem(c.Request.Context(), uid)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, alert)
}
