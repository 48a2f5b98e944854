package registry

import (
	"strings"

	"github.com/iliyamo/locker-registry/internal/model"
)

// Filter selects records in Query.  Zero fields match everything.
type Filter struct {
	// Name and Group match as case-insensitive substrings of the occupant
	// name and group.
	Name  string
	Group string
	// Status, Location and Number match exactly.
	Status   model.LockerStatus
	Location string
	Number   *int
}

// Match reports whether rec satisfies f.
func (f Filter) Match(rec model.LockerRecord) bool {
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.Location != "" && rec.Location != f.Location {
		return false
	}
	if f.Number != nil && rec.Number != *f.Number {
		return false
	}
	if f.Name != "" && !containsFold(rec.OccupantName, f.Name) {
		return false
	}
	if f.Group != "" && !containsFold(rec.OccupantGroup, f.Group) {
		return false
	}
	return true
}

// Query returns the records matching f in insertion order.  The result is
// never nil.
func (r Registry) Query(f Filter) []model.LockerRecord {
	out := make([]model.LockerRecord, 0)
	for _, rec := range r.records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
