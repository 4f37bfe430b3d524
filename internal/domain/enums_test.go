package domain

import "testing"

func TestAlertStatus_Valid(t *testing.T) {
	valid := []AlertStatus{
		StatusPending, StatusSent, StatusDelivered,
		StatusAcknowledged, StatusResolved, StatusFailed,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []AlertStatus{"", "cancelled", "SENT", "done"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestAlertType_Valid(t *testing.T) {
	valid := []AlertType{
		AlertGeneral, AlertMedical, AlertViolence, AlertHarassment,
		AlertStalking, AlertAccident, AlertFire, AlertNaturalDisaster,
	}
	for _, a := range valid {
		if !a.Valid() {
			t.Errorf("expected %q to be valid", a)
		}
	}
	for _, a := range []AlertType{"", "Medical", "tornado"} {
		if a.Valid() {
			t.Errorf("expected %q to be invalid", a)
		}
	}
}

func TestRelationship_Valid(t *testing.T) {
	for _, r := range []Relationship{RelFamily, RelFriend, RelColleague, RelNeighbor, RelOther} {
		if !r.Valid() {
			t.Errorf("expected %q to be valid", r)
		}
	}
	for _, r := range []Relationship{"", "parent", "Friend"} {
		if r.Valid() {
			t.Errorf("expected %q to be invalid", r)
		}
	}
}
