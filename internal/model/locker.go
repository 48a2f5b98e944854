package model

import (
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the on-disk and wire format of allocation dates.
const DateLayout = "2006-01-02"

// MaxRangeSize caps how many lockers a single catalog row may expand to.
const MaxRangeSize = 10000

// LockerNamespace scopes locker identities.  Changing it changes every id
// derived from it, so it must stay fixed once stores exist.
var LockerNamespace = uuid.MustParse("6f1c2a4e-3b8d-5e7f-9a0b-1c2d3e4f5a6b")

// LockerStatus is the occupancy state of a locker.
type LockerStatus string

const (
	StatusAvailable LockerStatus = "Available"
	StatusOccupied  LockerStatus = "Occupied"
)

// LockerDefinition is one catalog row: a location and the inclusive range
// of locker numbers found there.
type LockerDefinition struct {
	Location   string
	RangeStart int
	RangeEnd   int
}

// Size returns how many lockers the definition expands to, saturating at
// math.MaxInt for ranges spanning the whole int domain.
func (d LockerDefinition) Size() int {
	if d.RangeEnd < d.RangeStart {
		return 0
	}
	span := uint64(d.RangeEnd) - uint64(d.RangeStart)
	if span >= math.MaxInt {
		return math.MaxInt
	}
	return int(span) + 1
}

// LockerRecord is the persisted state of a single physical locker.  ID is
// derived from Location and Number; OccupantName, OccupantGroup and
// AllocatedDate are set only while Status is Occupied.
type LockerRecord struct {
	ID            string
	Number        int
	Location      string
	OccupantName  string
	OccupantGroup string // class or cohort
	Status        LockerStatus
	AllocatedDate time.Time // day granularity, zero when free
}

// IsAvailable reports whether the locker can be allocated.
func (r LockerRecord) IsAvailable() bool {
	return r.Status == StatusAvailable
}

// DateString renders AllocatedDate, or "" when unset.
func (r LockerRecord) DateString() string {
	if r.AllocatedDate.IsZero() {
		return ""
	}
	return r.AllocatedDate.Format(DateLayout)
}

// NewAvailableRecord returns a free locker record with its identity set.
func NewAvailableRecord(location string, number int) LockerRecord {
	return LockerRecord{
		ID:       LockerID(location, number),
		Number:   number,
		Location: location,
		Status:   StatusAvailable,
	}
}

// LockerID derives the identity of the locker numbered number at location.
// The same pair always yields the same id.
func LockerID(location string, number int) string {
	return uuid.NewSHA1(LockerNamespace, []byte(location+"#"+strconv.Itoa(number))).String()
}
