// Package domain defines the persistence models for users, emergency
// contacts, and emergency alerts. These types are mapped with GORM and form
// the core data layer of the alerting backend.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// User represents an account holder. The auth subsystem owns this table;
// the alerting core only reads ID, FullName, and PhoneNumber when composing
// notifications.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique login identifier.
//   - FullName: display name included in emergency messages.
//   - PhoneNumber: optional callback number shared with contacts.
//   - EmergencyMedicalInfo: free text surfaced to responders.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID                   string    `json:"id"                     gorm:"type:char(36);primaryKey"`
	Email                string    `json:"email"                  gorm:"type:varchar(255);not null;uniqueIndex"`
	FullName             string    `json:"full_name"              gorm:"type:varchar(255);not null"`
	PhoneNumber          string    `json:"phone_number,omitempty" gorm:"type:varchar(32)"`
	EmergencyMedicalInfo string    `json:"emergency_medical_info,omitempty" gorm:"type:text"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	// Settings is the one-to-one alert-behavior record for this user.
	Settings *UserSettings `json:"settings,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// UserSettings controls per-user alert behavior. One row per user, created
// alongside the account.
type UserSettings struct {
	ID                        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID                    string    `json:"user_id" gorm:"type:char(36);not null;uniqueIndex"`
	EnableLocationSharing     bool      `json:"enable_location_sharing"      gorm:"not null;default:true"`
	AutoContactPolice         bool      `json:"auto_contact_police"          gorm:"not null;default:false"`
	EnablePushNotifications   bool      `json:"enable_push_notifications"    gorm:"not null;default:true"`
	AlertDelaySeconds         int       `json:"alert_delay_seconds"          gorm:"not null;default:0"`
	ShareLocationWithContacts bool      `json:"share_location_with_contacts" gorm:"not null;default:true"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserSettings.
func (UserSettings) TableName() string { return "user_settings" }

// EmergencyContact is a trusted person registered to receive emergency
// notifications for a given user. Contacts are never shared across users
// and are hard-deleted on removal.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: owning user; indexed for per-user listings.
//   - Name / PhoneNumber: required delivery identity.
//   - Email: optional second delivery channel.
//   - Relationship: one of the Relationship enum values.
//   - IsActive: inactive contacts are skipped during alert fan-out.
//   - PriorityOrder: ascending priority (1 = notified first).
//
// Phone uniqueness per owner is checked at the service layer, not by a DB
// constraint, so two concurrent adds can both land. That window is an
// accepted consistency gap.
type EmergencyContact struct {
	ID            string       `json:"id"              gorm:"type:char(36);primaryKey"`
	UserID        string       `json:"user_id"         gorm:"type:char(36);not null;index:idx_user_contacts"`
	Name          string       `json:"name"            gorm:"type:varchar(255);not null"`
	PhoneNumber   string       `json:"phone_number"    gorm:"type:varchar(32);not null"`
	Email         string       `json:"email,omitempty" gorm:"type:varchar(255)"`
	Relationship  Relationship `json:"relationship"    gorm:"type:varchar(16);not null;default:'other'"`
	IsActive      bool         `json:"is_active"       gorm:"not null;default:true"`
	PriorityOrder int          `json:"priority_order"  gorm:"not null;default:1"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// TableName returns the database table name for EmergencyContact.
func (EmergencyContact) TableName() string { return "emergency_contacts" }

// EmergencyAlert is a user-triggered emergency event record. An alert is
// created once by the lifecycle service and afterwards mutated only through
// status transitions (plus metadata merges); rows are never deleted so the
// trail stays auditable.
//
// ContactsNotified is a snapshot of the active contact IDs captured at
// creation time. Later contact edits or deletions do not rewrite it.
type EmergencyAlert struct {
	ID               string                      `json:"id"                gorm:"type:char(36);primaryKey"`
	UserID           string                      `json:"user_id"           gorm:"type:char(36);not null;index:idx_user_alerts,priority:1"`
	AlertType        AlertType                   `json:"alert_type"        gorm:"type:varchar(24);not null"`
	Message          string                      `json:"message,omitempty" gorm:"type:varchar(500)"`
	Latitude         *float64                    `json:"latitude,omitempty"`
	Longitude        *float64                    `json:"longitude,omitempty"`
	LocationAccuracy *float64                    `json:"location_accuracy,omitempty"`
	Address          string                      `json:"address,omitempty" gorm:"type:varchar(500)"`
	Status           AlertStatus                 `json:"status"            gorm:"type:varchar(16);not null;default:'pending'"`
	ContactsNotified datatypes.JSONSlice[string] `json:"contacts_notified" gorm:"not null"`
	PoliceContacted  bool                        `json:"police_contacted"  gorm:"not null;default:false"`
	AcknowledgedAt   *time.Time                  `json:"acknowledged_at,omitempty"`
	ResolvedAt       *time.Time                  `json:"resolved_at,omitempty"`
	Metadata         datatypes.JSONMap           `json:"metadata,omitempty"`
	CreatedAt        time.Time                   `json:"created_at" gorm:"index:idx_user_alerts,priority:2"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// TableName returns the database table name for EmergencyAlert.
func (EmergencyAlert) TableName() string { return "emergency_alerts" }
