// Package domain – enumerated values shared across the data layer.
//
// Status validation is deliberately a set-membership check: the source of
// truth allows any status to follow any other (including backwards moves
// such as resolved → pending). Whether those backward transitions are
// intentional is an open review question; until it is answered, no
// transition graph is enforced here.
package domain

// AlertStatus is the lifecycle state of an EmergencyAlert.
type AlertStatus string

// Recognized alert statuses. The usual forward path is
// pending → sent → delivered → acknowledged → resolved, with failed
// reachable from any non-terminal state. resolved and failed are terminal
// by convention only.
const (
	StatusPending      AlertStatus = "pending"
	StatusSent         AlertStatus = "sent"
	StatusDelivered    AlertStatus = "delivered"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusResolved     AlertStatus = "resolved"
	StatusFailed       AlertStatus = "failed"
)

var validStatuses = map[AlertStatus]struct{}{
	StatusPending:      {},
	StatusSent:         {},
	StatusDelivered:    {},
	StatusAcknowledged: {},
	StatusResolved:     {},
	StatusFailed:       {},
}

// Valid reports whether s is one of the six recognized statuses.
func (s AlertStatus) Valid() bool {
	_, ok := validStatuses[s]
	return ok
}

// AlertType classifies the emergency being reported.
type AlertType string

// Recognized alert types.
const (
	AlertGeneral         AlertType = "general"
	AlertMedical         AlertType = "medical"
	AlertViolence        AlertType = "violence"
	AlertHarassment      AlertType = "harassment"
	AlertStalking        AlertType = "stalking"
	AlertAccident        AlertType = "accident"
	AlertFire            AlertType = "fire"
	AlertNaturalDisaster AlertType = "natural_disaster"
)

var validAlertTypes = map[AlertType]struct{}{
	AlertGeneral:         {},
	AlertMedical:         {},
	AlertViolence:        {},
	AlertHarassment:      {},
	AlertStalking:        {},
	AlertAccident:        {},
	AlertFire:            {},
	AlertNaturalDisaster: {},
}

// Valid reports whether t is a recognized alert type.
func (t AlertType) Valid() bool {
	_, ok := validAlertTypes[t]
	return ok
}

// Relationship describes how a contact relates to the owning user.
type Relationship string

// Recognized contact relationships.
const (
	RelFamily    Relationship = "family"
	RelFriend    Relationship = "friend"
	RelColleague Relationship = "colleague"
	RelNeighbor  Relationship = "neighbor"
	RelOther     Relationship = "other"
)

var validRelationships = map[Relationship]struct{}{
	RelFamily:    {},
	RelFriend:    {},
	RelColleague: {},
	RelNeighbor:  {},
	RelOther:     {},
}

// Valid reports whether r is a recognized relationship.
func (r Relationship) Valid() bool {
	_, ok := validRelationships[r]
	return ok
}
