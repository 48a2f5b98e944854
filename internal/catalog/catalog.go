// Package catalog reads the locker catalog: the spreadsheet listing every
// location and the range of locker numbers installed there.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/locker-registry/internal/model"
	"github.com/iliyamo/locker-registry/internal/utils"
)

// ErrCatalogUnreadable is returned when the catalog is missing, cannot be
// parsed or lacks a required column.  No partial catalog is ever returned
// alongside it.
var ErrCatalogUnreadable = errors.New("catalog unreadable")

// ExpectedSchema describes the catalog layout for operators.
const ExpectedSchema = `The locker catalog must be a spreadsheet (.xlsx or .csv) with a header row and the columns:
  - Location (or Localização): where the lockers are, e.g. Block A, Floor 2
  - RangeStart (or Início): number of the first locker in the range
  - RangeEnd (or Fim): number of the last locker in the range

RangeStart must not be greater than RangeEnd, and a row may cover at most
10000 lockers.

Example:
  | Location | RangeStart | RangeEnd |
  |----------|------------|----------|
  | Block A  | 1          | 50       |
  | Block B  | 51         | 100      |`

// Header aliases, already folded (lower case, no accents, no separators).
var (
	locationHeaders = []string{"location", "localizacao"}
	startHeaders    = []string{"rangestart", "start", "inicio"}
	endHeaders      = []string{"rangeend", "end", "fim"}
)

// Options tunes how a catalog file is read.
type Options struct {
	// Sheet selects the worksheet of an .xlsx catalog.  Empty means the
	// first sheet.
	Sheet string
}

// Load reads the catalog at path.  The format is chosen from the file
// extension: .csv is read as comma-separated text, anything else as an
// Excel workbook.
func Load(path string, opts Options) ([]model.LockerDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnreadable, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return LoadCSV(f)
	}
	return LoadXLSX(f, opts.Sheet)
}

// LoadXLSX reads a catalog workbook from r.
func LoadXLSX(r io.Reader, sheet string) ([]model.LockerDefinition, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse workbook: %v", ErrCatalogUnreadable, err)
	}
	defer wb.Close()

	if sheet == "" {
		sheet = wb.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrCatalogUnreadable)
	}
	// Raw values: a numeric cell formatted as "#,##0" would otherwise read
	// back as "1,200".
	rows, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrCatalogUnreadable, sheet, err)
	}
	return parseRows(rows)
}

// LoadCSV reads a comma-separated catalog from r.
func LoadCSV(r io.Reader) ([]model.LockerDefinition, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %v", ErrCatalogUnreadable, err)
	}
	return parseRows(rows)
}

func parseRows(rows [][]string) ([]model.LockerDefinition, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrCatalogUnreadable)
	}
	header := rows[0]
	locCol := utils.FindColumn(header, locationHeaders...)
	startCol := utils.FindColumn(header, startHeaders...)
	endCol := utils.FindColumn(header, endHeaders...)

	var missing []string
	if locCol < 0 {
		missing = append(missing, "Location")
	}
	if startCol < 0 {
		missing = append(missing, "RangeStart")
	}
	if endCol < 0 {
		missing = append(missing, "RangeEnd")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing column(s) %s", ErrCatalogUnreadable, strings.Join(missing, ", "))
	}

	defs := make([]model.LockerDefinition, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2 // 1-based, header is line 1
		if utils.IsBlankRow(row) {
			continue
		}
		location := strings.TrimSpace(utils.Cell(row, locCol))
		if location == "" {
			return nil, fmt.Errorf("%w: row %d: empty location", ErrCatalogUnreadable, line)
		}
		start, err := parseBound(utils.Cell(row, startCol))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: range start: %v", ErrCatalogUnreadable, line, err)
		}
		end, err := parseBound(utils.Cell(row, endCol))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: range end: %v", ErrCatalogUnreadable, line, err)
		}
		if start > end {
			return nil, fmt.Errorf("%w: row %d: range start %d is after range end %d", ErrCatalogUnreadable, line, start, end)
		}
		def := model.LockerDefinition{Location: location, RangeStart: start, RangeEnd: end}
		if def.Size() > model.MaxRangeSize {
			return nil, fmt.Errorf("%w: row %d: range %d-%d covers more than %d lockers", ErrCatalogUnreadable, line, start, end, model.MaxRangeSize)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// parseBound accepts integers and integral decimals such as "12.0", which
// spreadsheets produce for numeric cells.  Decimals outside the int range
// are rejected.
func parseBound(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty value")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if f < math.MinInt || f >= math.MaxInt {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return int(f), nil
}
