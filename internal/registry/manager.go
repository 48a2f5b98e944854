package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/locker-registry/internal/model"
	"github.com/iliyamo/locker-registry/internal/repository"
)

// Store persists registry snapshots.  *repository.LockerRepo implements it.
type Store interface {
	Load(ctx context.Context) (repository.Snapshot, error)
	Save(ctx context.Context, records []model.LockerRecord) error
}

// Manager ties a store to the catalog it must agree with.
type Manager struct {
	store   Store
	catalog []model.LockerDefinition
	log     *zap.Logger
}

// NewManager constructs a Manager.  A nil logger disables logging.
func NewManager(store Store, catalog []model.LockerDefinition, log *zap.Logger) *Manager {
	if store == nil {
		panic("nil store passed to NewManager")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, catalog: catalog, log: log}
}

// Initialize loads the persisted registry and reconciles it with the
// catalog.  Exactly one of the following happens:
//
//  1. the store predates the id column: ids are derived for every existing
//     record and the upgraded store is written back;
//  2. the store is empty: every catalog range is expanded into Available
//     records and written;
//  3. otherwise the persisted records are returned unchanged.
//
// Migration never falls through into population, so an existing store is
// never wiped and regenerated.  When the write in step 1 or 2 fails the
// error wraps repository.ErrStoreWriteFailed and the reconciled registry is
// still returned.
func (m *Manager) Initialize(ctx context.Context) (Registry, error) {
	snap, err := m.store.Load(ctx)
	if err != nil {
		return Registry{}, fmt.Errorf("load store: %w", err)
	}

	switch {
	case snap.Exists && !snap.HasIdentity:
		records := assignIdentities(snap.Records)
		reg, err := New(records)
		if err != nil {
			return Registry{}, fmt.Errorf("migrate store: %w", err)
		}
		m.log.Info("migrated locker store to stable ids", zap.Int("records", reg.Len()))
		return reg, m.Persist(ctx, reg)

	case len(snap.Records) == 0:
		records, err := Expand(m.catalog)
		if err != nil {
			return Registry{}, fmt.Errorf("populate store: %w", err)
		}
		reg, err := New(records)
		if err != nil {
			return Registry{}, fmt.Errorf("populate store: %w", err)
		}
		m.log.Info("populated locker store from catalog",
			zap.Int("ranges", len(m.catalog)), zap.Int("records", reg.Len()))
		return reg, m.Persist(ctx, reg)

	default:
		reg, err := New(snap.Records)
		if err != nil {
			return Registry{}, fmt.Errorf("%w: %w", repository.ErrStoreUnreadable, err)
		}
		return reg, nil
	}
}

// Persist overwrites the store with reg.
func (m *Manager) Persist(ctx context.Context, reg Registry) error {
	if err := m.store.Save(ctx, reg.records); err != nil {
		m.log.Error("persist locker store failed", zap.Error(err))
		return err
	}
	m.log.Debug("persisted locker store", zap.Int("records", reg.Len()))
	return nil
}

// Expand turns catalog ranges into one Available record per locker, in
// catalog order.  A (location, number) pair produced twice is reported
// with ErrDuplicateLocker rather than collapsed.  Ranges larger than
// model.MaxRangeSize are refused.
func Expand(defs []model.LockerDefinition) ([]model.LockerRecord, error) {
	total := 0
	for _, d := range defs {
		size := d.Size()
		if size > model.MaxRangeSize {
			return nil, fmt.Errorf("%s: range %d-%d covers more than %d lockers", d.Location, d.RangeStart, d.RangeEnd, model.MaxRangeSize)
		}
		total += size
	}
	records := make([]model.LockerRecord, 0, total)
	seen := make(map[string]struct{}, total)
	for _, d := range defs {
		for i := 0; i < d.Size(); i++ {
			n := d.RangeStart + i
			rec := model.NewAvailableRecord(d.Location, n)
			if _, dup := seen[rec.ID]; dup {
				return nil, fmt.Errorf("%w: %s #%d appears in more than one catalog range", ErrDuplicateLocker, d.Location, n)
			}
			seen[rec.ID] = struct{}{}
			records = append(records, rec)
		}
	}
	return records, nil
}

func assignIdentities(records []model.LockerRecord) []model.LockerRecord {
	out := make([]model.LockerRecord, len(records))
	for i, rec := range records {
		rec.ID = model.LockerID(rec.Location, rec.Number)
		out[i] = rec
	}
	return out
}
