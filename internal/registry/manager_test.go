package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/locker-registry/internal/model"
	"github.com/iliyamo/locker-registry/internal/repository"
)

// memStore is an in-memory Store that counts writes.
type memStore struct {
	snap    repository.Snapshot
	saves   int
	saveErr error
}

func (s *memStore) Load(context.Context) (repository.Snapshot, error) {
	out := s.snap
	out.Records = append([]model.LockerRecord(nil), s.snap.Records...)
	return out, nil
}

func (s *memStore) Save(_ context.Context, records []model.LockerRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.snap = repository.Snapshot{
		Records:     append([]model.LockerRecord(nil), records...),
		Exists:      true,
		HasIdentity: true,
	}
	return nil
}

var catalogAB = []model.LockerDefinition{
	{Location: "BlockA", RangeStart: 1, RangeEnd: 3},
	{Location: "BlockB", RangeStart: 10, RangeEnd: 11},
}

func TestInitializePopulatesEmptyStore(t *testing.T) {
	store := &memStore{snap: repository.Snapshot{HasIdentity: true}}
	m := NewManager(store, catalogAB, zaptest.NewLogger(t))

	reg, err := m.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, reg.Len())
	assert.Equal(t, Summary{Total: 5, Available: 5}, reg.Summary())
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, reg.Records(), store.snap.Records)
}

func TestInitializeIsNoOpOnPopulatedStore(t *testing.T) {
	store := &memStore{snap: repository.Snapshot{HasIdentity: true}}
	m := NewManager(store, catalogAB, zaptest.NewLogger(t))
	ctx := context.Background()

	reg, err := m.Initialize(ctx)
	require.NoError(t, err)
	reg, err = reg.Allocate(model.LockerID("BlockB", 10), "Ana", "3B", jan1)
	require.NoError(t, err)
	require.NoError(t, m.Persist(ctx, reg))

	again, err := m.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, reg.Records(), again.Records())
	assert.Equal(t, 2, store.saves, "re-initializing must not write")
}

func TestInitializeMigratesWithoutPopulating(t *testing.T) {
	legacy := []model.LockerRecord{
		{Number: 1, Location: "BlockA", Status: model.StatusAvailable},
		{Number: 2, Location: "BlockA", OccupantName: "JOHN", OccupantGroup: "G1", Status: model.StatusOccupied, AllocatedDate: jan1},
	}
	store := &memStore{snap: repository.Snapshot{Records: legacy, Exists: true}}
	m := NewManager(store, catalogAB, zaptest.NewLogger(t))

	reg, err := m.Initialize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len(), "migration must not add catalog records")
	assert.Equal(t, 1, store.saves)
	assert.True(t, store.snap.HasIdentity)

	rec, err := reg.Lookup("BlockA", 2)
	require.NoError(t, err)
	assert.Equal(t, "JOHN", rec.OccupantName)
	assert.Equal(t, model.LockerID("BlockA", 2), rec.ID)
}

func TestInitializeMigratesHeaderOnlyLegacyStore(t *testing.T) {
	store := &memStore{snap: repository.Snapshot{Exists: true}}
	m := NewManager(store, catalogAB, zaptest.NewLogger(t))
	ctx := context.Background()

	reg, err := m.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())

	reg, err = m.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, reg.Len())
	assert.Equal(t, 2, store.saves)
}

func TestInitializeRejectsOverlappingCatalog(t *testing.T) {
	store := &memStore{snap: repository.Snapshot{HasIdentity: true}}
	m := NewManager(store, []model.LockerDefinition{
		{Location: "A", RangeStart: 1, RangeEnd: 3},
		{Location: "A", RangeStart: 3, RangeEnd: 4},
	}, nil)

	_, err := m.Initialize(context.Background())
	require.ErrorIs(t, err, ErrDuplicateLocker)
	assert.Zero(t, store.saves)
}

func TestInitializeRejectsDuplicatePersistedIDs(t *testing.T) {
	rec := model.NewAvailableRecord("A", 1)
	store := &memStore{snap: repository.Snapshot{Records: []model.LockerRecord{rec, rec}, Exists: true, HasIdentity: true}}
	m := NewManager(store, nil, nil)

	_, err := m.Initialize(context.Background())
	require.ErrorIs(t, err, repository.ErrStoreUnreadable)
	require.ErrorIs(t, err, ErrDuplicateLocker)
}

func TestInitializeReturnsRegistryWhenWriteFails(t *testing.T) {
	writeErr := errors.Join(repository.ErrStoreWriteFailed, errors.New("disk full"))
	store := &memStore{snap: repository.Snapshot{HasIdentity: true}, saveErr: writeErr}
	m := NewManager(store, catalogAB, nil)

	reg, err := m.Initialize(context.Background())
	require.ErrorIs(t, err, repository.ErrStoreWriteFailed)
	assert.Equal(t, 5, reg.Len())
}

func TestManagerWithFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	legacy := "numero,localizacao,nome,turma,status,data\n" +
		"1,BlockA,,,Disponível,\n" +
		"2,BlockA,JOHN,G1,Ocupado,2024-01-01\n" +
		"3,BlockA,,,Disponível,\n"
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	m := NewManager(repository.NewLockerRepo(path), catalogAB[:1], zaptest.NewLogger(t))
	ctx := context.Background()

	reg, err := m.Initialize(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())

	reg, err = reg.Release(model.LockerID("BlockA", 2))
	require.NoError(t, err)
	require.NoError(t, m.Persist(ctx, reg))

	reloaded, err := m.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, reg.Records(), reloaded.Records())
	assert.Equal(t, Summary{Total: 3, Available: 3}, reloaded.Summary())
}
