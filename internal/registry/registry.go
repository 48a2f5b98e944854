// Package registry holds the locker registry: the list of per-locker
// occupancy records, the allocate and release transitions on them, and the
// reconciliation of the persisted store against the catalog.
//
// A Registry is a value.  Operations return a new Registry and never modify
// the receiver, so a failed operation leaves the caller's copy untouched.
// Nothing is durable until the caller persists the result.
package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/locker-registry/internal/model"
)

// Registry is an ordered set of locker records keyed by identity.
type Registry struct {
	records []model.LockerRecord
	index   map[string]int
}

// New builds a Registry from records, keeping their order.  Records must
// have distinct, non-empty ids.
func New(records []model.LockerRecord) (Registry, error) {
	reg := Registry{
		records: make([]model.LockerRecord, len(records)),
		index:   make(map[string]int, len(records)),
	}
	copy(reg.records, records)
	for i, rec := range reg.records {
		if rec.ID == "" {
			return Registry{}, fmt.Errorf("locker %s #%d has no id", rec.Location, rec.Number)
		}
		if j, dup := reg.index[rec.ID]; dup {
			prev := reg.records[j]
			return Registry{}, fmt.Errorf("%w: id %s used by %s #%d and %s #%d",
				ErrDuplicateLocker, rec.ID, prev.Location, prev.Number, rec.Location, rec.Number)
		}
		reg.index[rec.ID] = i
	}
	return reg, nil
}

// Len returns the number of lockers.
func (r Registry) Len() int { return len(r.records) }

// Records returns a copy of every record in insertion order.
func (r Registry) Records() []model.LockerRecord {
	out := make([]model.LockerRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Get returns the record with the given id.
func (r Registry) Get(id string) (model.LockerRecord, error) {
	i, ok := r.index[id]
	if !ok {
		return model.LockerRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return r.records[i], nil
}

// Lookup returns the record numbered number at location.
func (r Registry) Lookup(location string, number int) (model.LockerRecord, error) {
	return r.Get(model.LockerID(location, number))
}

// Allocate assigns the locker id to an occupant.  The locker must be
// Available.  date is truncated to the calendar day.
func (r Registry) Allocate(id, occupantName, occupantGroup string, date time.Time) (Registry, error) {
	occupantName = strings.TrimSpace(occupantName)
	occupantGroup = strings.TrimSpace(occupantGroup)
	switch {
	case occupantName == "":
		return r, fmt.Errorf("%w: occupant name is required", ErrInvalidAllocation)
	case occupantGroup == "":
		return r, fmt.Errorf("%w: occupant group is required", ErrInvalidAllocation)
	case date.IsZero():
		return r, fmt.Errorf("%w: allocation date is required", ErrInvalidAllocation)
	}

	i, ok := r.index[id]
	if !ok {
		return r, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	rec := r.records[i]
	if !rec.IsAvailable() {
		return r, fmt.Errorf("%w: %s #%d is held by %s", ErrAlreadyOccupied, rec.Location, rec.Number, rec.OccupantName)
	}
	rec.OccupantName = occupantName
	rec.OccupantGroup = occupantGroup
	rec.Status = model.StatusOccupied
	rec.AllocatedDate = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return r.with(i, rec), nil
}

// Release frees the locker id.  The locker must be Occupied.
func (r Registry) Release(id string) (Registry, error) {
	i, ok := r.index[id]
	if !ok {
		return r, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	rec := r.records[i]
	if rec.Status != model.StatusOccupied {
		return r, fmt.Errorf("%w: %s #%d", ErrNotOccupied, rec.Location, rec.Number)
	}
	rec.OccupantName = ""
	rec.OccupantGroup = ""
	rec.Status = model.StatusAvailable
	rec.AllocatedDate = time.Time{}
	return r.with(i, rec), nil
}

// with returns a copy of r whose i-th record is rec.  Positions and ids
// never change, so the index is shared.
func (r Registry) with(i int, rec model.LockerRecord) Registry {
	out := Registry{records: make([]model.LockerRecord, len(r.records)), index: r.index}
	copy(out.records, r.records)
	out.records[i] = rec
	return out
}

// Summary counts lockers by status.
type Summary struct {
	Total     int `json:"total"`
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

// Summary returns the occupancy counts of r.
func (r Registry) Summary() Summary {
	s := Summary{Total: len(r.records)}
	for _, rec := range r.records {
		if rec.Status == model.StatusOccupied {
			s.Occupied++
		}
	}
	s.Available = s.Total - s.Occupied
	return s
}

// Locations returns the distinct locations in order of first appearance.
func (r Registry) Locations() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range r.records {
		if _, ok := seen[rec.Location]; ok {
			continue
		}
		seen[rec.Location] = struct{}{}
		out = append(out, rec.Location)
	}
	return out
}
