package repository // repository defines file-backed persistence for locker records

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/locker-registry/internal/model"
	"github.com/iliyamo/locker-registry/internal/utils"
)

// StoreHeader is the column layout written by Save.
var StoreHeader = []string{"id", "number", "location", "occupantName", "occupantGroup", "status", "allocatedDate"}

// Column aliases accepted on read, already folded.  The second spelling of
// each column is the layout written by the spreadsheet tool this store
// replaces (numero, localizacao, nome, turma, status, data).
var (
	idColumn       = []string{"id"}
	numberColumn   = []string{"number", "numero"}
	locationColumn = []string{"location", "localizacao"}
	nameColumn     = []string{"occupantname", "name", "nome"}
	groupColumn    = []string{"occupantgroup", "group", "turma"}
	statusColumn   = []string{"status"}
	dateColumn     = []string{"allocateddate", "date", "data"}
)

// Snapshot is the decoded content of the store file.
type Snapshot struct {
	Records []model.LockerRecord
	// Exists is false when there was no file to read.
	Exists bool
	// HasIdentity is false when the file predates the id column.  Records
	// then carry an empty ID.
	HasIdentity bool
}

// LockerRepo reads and writes the registry store, a comma-separated file
// holding one row per locker.  Every Save rewrites the whole file.  The
// file is not locked: the last writer wins.
type LockerRepo struct {
	path string
}

// NewLockerRepo constructs a LockerRepo for the file at path.
func NewLockerRepo(path string) *LockerRepo {
	return &LockerRepo{path: path}
}

// Path returns the store file location.
func (r *LockerRepo) Path() string { return r.path }

// Load reads the store.  A missing file yields an empty snapshot with
// Exists false.
func (r *LockerRepo) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{HasIdentity: true}, nil
		}
		return Snapshot{}, fmt.Errorf("%w: %v", ErrStoreUnreadable, err)
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Exists = true
	return snap, nil
}

// Save overwrites the store with records.  The file is written next to
// the target and renamed into place so a failed write leaves the previous
// content intact.  An existing store keeps its permission bits; a new one
// is created 0644.
func (r *LockerRepo) Save(ctx context.Context, records []model.LockerRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, records); err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStoreWriteFailed, err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	mode := os.FileMode(0o644)
	if info, err := os.Stat(r.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	committed = true
	return nil
}

// Encode writes records in store layout, header first.
func Encode(w io.Writer, records []model.LockerRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StoreHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			strconv.Itoa(rec.Number),
			rec.Location,
			rec.OccupantName,
			rec.OccupantGroup,
			string(rec.Status),
			rec.DateString(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode parses a store file.  Rows are validated as they are read: the
// status must be known and must agree with the occupant and date columns.
// Locker numbers are parsed leniently, see ParseNumber.
func Decode(r io.Reader) (Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrStoreUnreadable, err)
	}
	if len(rows) == 0 {
		return Snapshot{HasIdentity: true}, nil
	}

	header := rows[0]
	var (
		idCol     = utils.FindColumn(header, idColumn...)
		numCol    = utils.FindColumn(header, numberColumn...)
		locCol    = utils.FindColumn(header, locationColumn...)
		nameCol   = utils.FindColumn(header, nameColumn...)
		groupCol  = utils.FindColumn(header, groupColumn...)
		statusCol = utils.FindColumn(header, statusColumn...)
		dateCol   = utils.FindColumn(header, dateColumn...)
	)
	if numCol < 0 || locCol < 0 || statusCol < 0 {
		return Snapshot{}, fmt.Errorf("%w: header must name number, location and status columns", ErrStoreUnreadable)
	}

	snap := Snapshot{HasIdentity: idCol >= 0}
	snap.Records = make([]model.LockerRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if utils.IsBlankRow(row) {
			continue
		}
		status, err := ParseStatus(utils.Cell(row, statusCol))
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: row %d: %v", ErrStoreUnreadable, line, err)
		}
		date, err := parseDate(utils.Cell(row, dateCol))
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: row %d: %v", ErrStoreUnreadable, line, err)
		}
		rec := model.LockerRecord{
			ID:            strings.TrimSpace(utils.Cell(row, idCol)),
			Number:        ParseNumber(utils.Cell(row, numCol)),
			Location:      strings.TrimSpace(utils.Cell(row, locCol)),
			OccupantName:  strings.TrimSpace(utils.Cell(row, nameCol)),
			OccupantGroup: strings.TrimSpace(utils.Cell(row, groupCol)),
			Status:        status,
			AllocatedDate: date,
		}
		if snap.HasIdentity && rec.ID == "" {
			return Snapshot{}, fmt.Errorf("%w: row %d: empty id", ErrStoreUnreadable, line)
		}
		if err := checkOccupancy(rec); err != nil {
			return Snapshot{}, fmt.Errorf("%w: row %d: %v", ErrStoreUnreadable, line, err)
		}
		snap.Records = append(snap.Records, rec)
	}
	return snap, nil
}

// ParseNumber converts a stored locker number.  Values that are not
// integers (empty, text, fractional) become 0 instead of failing the load;
// integral decimals such as "7.0" are accepted.
func ParseNumber(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return int(f)
}

// ParseStatus maps stored status text to a LockerStatus.  The Portuguese
// labels written by the previous tool are recognised too.
func ParseStatus(s string) (model.LockerStatus, error) {
	switch utils.FoldKey(s) {
	case "available", "disponivel":
		return model.StatusAvailable, nil
	case "occupied", "ocupado":
		return model.StatusOccupied, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if len(s) > len(model.DateLayout) {
		// tolerate timestamps, keep the day
		s = s[:len(model.DateLayout)]
	}
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return d, nil
}

func checkOccupancy(rec model.LockerRecord) error {
	occupied := rec.Status == model.StatusOccupied
	if occupied != (rec.OccupantName != "") {
		return fmt.Errorf("status %s disagrees with occupant name %q", rec.Status, rec.OccupantName)
	}
	if occupied != !rec.AllocatedDate.IsZero() {
		return fmt.Errorf("status %s disagrees with allocation date %q", rec.Status, rec.DateString())
	}
	return nil
}
