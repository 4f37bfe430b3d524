// Package services defines the business logic for emergency contacts and
// emergency alerts. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked
// by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Contact-related errors.
var (
	// ErrContactNotFound indicates that the requested contact does not exist.
	ErrContactNotFound = errors.New("contact not found")

	// ErrContactAccessDenied is returned when a user references a contact
	// owned by somebody else.
	ErrContactAccessDenied = errors.New("contact belongs to another user")

	// ErrMissingContactFields is returned when a contact is created or
	// updated without a name or phone number.
	ErrMissingContactFields = errors.New("name and phone number are required")

	// ErrInvalidRelationship is returned when the relationship value is
	// outside the recognized set.
	ErrInvalidRelationship = errors.New("invalid relationship")

	// ErrDuplicatePhone is returned when the user already has a contact
	// registered under the same phone number.
	ErrDuplicatePhone = errors.New("contact with this phone number already exists")
)

// Alert-related errors.
var (
	// ErrAlertNotFound indicates that the requested alert does not exist.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrAlertAccessDenied is returned when a user references an alert
	// owned by somebody else.
	ErrAlertAccessDenied = errors.New("alert belongs to another user")

	// ErrInvalidAlertType is returned when the alert type is outside the
	// recognized set.
	ErrInvalidAlertType = errors.New("invalid alert type")

	// ErrInvalidAlertStatus is returned when a status transition targets a
	// value outside the recognized set.
	ErrInvalidAlertStatus = errors.New("invalid alert status")

	// ErrMessageTooLong is returned when the alert message exceeds the
	// storage limit.
	ErrMessageTooLong = errors.New("message too long")

	// ErrNoActiveContacts is returned when an alert is triggered while the
	// user has no active emergency contacts. Nothing is persisted in that
	// case.
	ErrNoActiveContacts = errors.New("no active emergency contacts")

	// ErrUserNotFound indicates the acting user has no account row.
	ErrUserNotFound = errors.New("user not found")
)
