package registry

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/locker-registry/internal/model"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func blockA(t *testing.T) Registry {
	t.Helper()
	records, err := Expand([]model.LockerDefinition{{Location: "BlockA", RangeStart: 1, RangeEnd: 3}})
	require.NoError(t, err)
	reg, err := New(records)
	require.NoError(t, err)
	return reg
}

func TestExpandCounts(t *testing.T) {
	defs := []model.LockerDefinition{
		{Location: "A", RangeStart: 1, RangeEnd: 50},
		{Location: "B", RangeStart: 51, RangeEnd: 100},
		{Location: "C", RangeStart: 7, RangeEnd: 7},
		{Location: "D", RangeStart: 1, RangeEnd: 10},
	}
	records, err := Expand(defs)
	require.NoError(t, err)
	require.Len(t, records, 50+50+1+10)
	for _, rec := range records {
		assert.Equal(t, model.StatusAvailable, rec.Status)
		assert.Empty(t, rec.OccupantName)
		assert.Empty(t, rec.OccupantGroup)
		assert.True(t, rec.AllocatedDate.IsZero())
	}
	assert.Equal(t, model.LockerID("C", 7), records[100].ID)
}

func TestExpandSameNumberDifferentLocations(t *testing.T) {
	records, err := Expand([]model.LockerDefinition{
		{Location: "A", RangeStart: 1, RangeEnd: 2},
		{Location: "B", RangeStart: 1, RangeEnd: 2},
	})
	require.NoError(t, err)
	_, err = New(records)
	require.NoError(t, err)
	assert.NotEqual(t, records[0].ID, records[2].ID)
}

func TestExpandRejectsOverlap(t *testing.T) {
	_, err := Expand([]model.LockerDefinition{
		{Location: "A", RangeStart: 1, RangeEnd: 5},
		{Location: "A", RangeStart: 5, RangeEnd: 8},
	})
	require.ErrorIs(t, err, ErrDuplicateLocker)
	assert.Contains(t, err.Error(), "A #5")
}

func TestExpandRangeEndingAtMaxInt(t *testing.T) {
	records, err := Expand([]model.LockerDefinition{
		{Location: "A", RangeStart: math.MaxInt - 2, RangeEnd: math.MaxInt},
	})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, math.MaxInt, records[2].Number)
}

func TestExpandRejectsOversizedRange(t *testing.T) {
	for _, d := range []model.LockerDefinition{
		{Location: "A", RangeStart: math.MinInt, RangeEnd: math.MaxInt},
		{Location: "A", RangeStart: 1, RangeEnd: model.MaxRangeSize + 1},
	} {
		_, err := Expand([]model.LockerDefinition{d})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "covers more than")
	}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	rec := model.NewAvailableRecord("A", 1)
	_, err := New([]model.LockerRecord{rec, rec})
	require.ErrorIs(t, err, ErrDuplicateLocker)
}

func TestBlockAScenario(t *testing.T) {
	reg := blockA(t)
	require.Equal(t, 3, reg.Len())
	for i, rec := range reg.Records() {
		assert.Equal(t, i+1, rec.Number)
		assert.Equal(t, "BlockA", rec.Location)
		assert.True(t, rec.IsAvailable())
	}

	id2 := model.LockerID("BlockA", 2)
	allocated, err := reg.Allocate(id2, "JOHN", "G1", jan1)
	require.NoError(t, err)

	rec, err := allocated.Get(id2)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOccupied, rec.Status)
	assert.Equal(t, "JOHN", rec.OccupantName)
	assert.Equal(t, "G1", rec.OccupantGroup)
	assert.Equal(t, "2024-01-01", rec.DateString())

	before := reg.Records()
	after := allocated.Records()
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[2])

	released, err := allocated.Release(id2)
	require.NoError(t, err)
	rec, err = released.Get(id2)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, rec.Status)
	assert.Empty(t, rec.OccupantName)
	assert.Empty(t, rec.OccupantGroup)
	assert.Empty(t, rec.DateString())
}

func TestAllocateReleaseRoundTrip(t *testing.T) {
	reg := blockA(t)
	for _, rec := range reg.Records() {
		allocated, err := reg.Allocate(rec.ID, "Ana", "3B", jan1.Add(15*time.Hour))
		require.NoError(t, err)
		released, err := allocated.Release(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, reg.Records(), released.Records())
	}
}

func TestAllocateDoesNotModifyReceiver(t *testing.T) {
	reg := blockA(t)
	id := model.LockerID("BlockA", 1)
	_, err := reg.Allocate(id, "Ana", "3B", jan1)
	require.NoError(t, err)
	rec, err := reg.Get(id)
	require.NoError(t, err)
	assert.True(t, rec.IsAvailable())
}

func TestAllocateOccupied(t *testing.T) {
	id := model.LockerID("BlockA", 1)
	reg, err := blockA(t).Allocate(id, "Ana", "3B", jan1)
	require.NoError(t, err)

	again, err := reg.Allocate(id, "Bob", "4C", jan1)
	require.ErrorIs(t, err, ErrAlreadyOccupied)
	assert.Equal(t, reg.Records(), again.Records())
	rec, _ := again.Get(id)
	assert.Equal(t, "Ana", rec.OccupantName)
}

func TestReleaseAvailable(t *testing.T) {
	reg := blockA(t)
	same, err := reg.Release(model.LockerID("BlockA", 3))
	require.ErrorIs(t, err, ErrNotOccupied)
	assert.Equal(t, reg.Records(), same.Records())
}

func TestUnknownID(t *testing.T) {
	reg := blockA(t)
	_, err := reg.Allocate("nope", "Ana", "3B", jan1)
	require.ErrorIs(t, err, ErrRecordNotFound)
	_, err = reg.Release("nope")
	require.ErrorIs(t, err, ErrRecordNotFound)
	_, err = reg.Get("nope")
	require.ErrorIs(t, err, ErrRecordNotFound)
	_, err = reg.Lookup("BlockB", 1)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestAllocateValidation(t *testing.T) {
	reg := blockA(t)
	id := model.LockerID("BlockA", 1)
	cases := []struct {
		name, occupant, group string
		date                  time.Time
	}{
		{"blank name", "  ", "G1", jan1},
		{"blank group", "Ana", "", jan1},
		{"no date", "Ana", "G1", time.Time{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := reg.Allocate(id, tc.occupant, tc.group, tc.date)
			require.ErrorIs(t, err, ErrInvalidAllocation)
			assert.Equal(t, reg.Records(), out.Records())
		})
	}
}

func TestSummaryAndLocations(t *testing.T) {
	records, err := Expand([]model.LockerDefinition{
		{Location: "B", RangeStart: 1, RangeEnd: 2},
		{Location: "A", RangeStart: 1, RangeEnd: 2},
	})
	require.NoError(t, err)
	reg, err := New(records)
	require.NoError(t, err)
	reg, err = reg.Allocate(model.LockerID("A", 2), "Ana", "3B", jan1)
	require.NoError(t, err)

	assert.Equal(t, Summary{Total: 4, Occupied: 1, Available: 3}, reg.Summary())
	assert.Equal(t, []string{"B", "A"}, reg.Locations())
}
