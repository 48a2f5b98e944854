// Package handler exposes HTTP handlers for the locker registry.  Every
// request reloads the registry from the store, so each handler sees the
// state left by the previous one; mutations persist before responding.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/locker-registry/internal/export"
	"github.com/iliyamo/locker-registry/internal/model"
	"github.com/iliyamo/locker-registry/internal/registry"
	"github.com/iliyamo/locker-registry/internal/repository"
)

// LockerHandler serves the registry operations.  It serializes
// load -> mutate -> persist cycles with a mutex so only one logical
// operation runs at a time within this process.
type LockerHandler struct {
	Manager        *registry.Manager // loads, reconciles and persists the registry
	Log            *zap.Logger
	ExportFilename string           // download name for spreadsheet exports
	Now            func() time.Time // clock used for default allocation dates

	mu sync.Mutex
}

// NewLockerHandler constructs a LockerHandler and panics if the manager is nil.
func NewLockerHandler(m *registry.Manager, log *zap.Logger, exportFilename string) *LockerHandler {
	if m == nil {
		panic("nil manager passed to NewLockerHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if exportFilename == "" {
		exportFilename = "lockers.xlsx"
	}
	return &LockerHandler{Manager: m, Log: log, ExportFilename: exportFilename, Now: time.Now}
}

// Locker is the JSON form of a locker record.
type Locker struct {
	ID            string `json:"id"`
	Number        int    `json:"number"`
	Location      string `json:"location"`
	OccupantName  string `json:"occupant_name"`
	OccupantGroup string `json:"occupant_group"`
	Status        string `json:"status"`
	AllocatedDate string `json:"allocated_date"`
}

func toLocker(rec model.LockerRecord) Locker {
	return Locker{
		ID:            rec.ID,
		Number:        rec.Number,
		Location:      rec.Location,
		OccupantName:  rec.OccupantName,
		OccupantGroup: rec.OccupantGroup,
		Status:        string(rec.Status),
		AllocatedDate: rec.DateString(),
	}
}

func toLockers(records []model.LockerRecord) []Locker {
	out := make([]Locker, len(records))
	for i, rec := range records {
		out[i] = toLocker(rec)
	}
	return out
}

// AllocateRequest is the body of POST /v1/lockers/:id/allocate.
type AllocateRequest struct {
	OccupantName  string `json:"occupant_name"`
	OccupantGroup string `json:"occupant_group"`
	AllocatedDate string `json:"allocated_date"` // YYYY-MM-DD, defaults to today
}

// List handles GET /v1/lockers.  Optional query parameters: status
// (available|occupied), location (exact), number (exact), name and group
// (case-insensitive substring).  The response carries the summary of the
// whole registry and the matching lockers in registry order.
func (h *LockerHandler) List(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	reg, err := h.load(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"summary": reg.Summary(),
		"lockers": toLockers(reg.Query(filter)),
	})
}

// Summary handles GET /v1/lockers/summary.
func (h *LockerHandler) Summary(c echo.Context) error {
	reg, err := h.load(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, reg.Summary())
}

// Locations handles GET /v1/locations.
func (h *LockerHandler) Locations(c echo.Context) error {
	reg, err := h.load(c)
	if err != nil {
		return h.fail(c, err)
	}
	locations := reg.Locations()
	if locations == nil {
		locations = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"locations": locations})
}

// Get handles GET /v1/lockers/:id.
func (h *LockerHandler) Get(c echo.Context) error {
	reg, err := h.load(c)
	if err != nil {
		return h.fail(c, err)
	}
	rec, err := reg.Get(c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, toLocker(rec))
}

// GetByNumber handles GET /v1/locations/:location/lockers/:number.
func (h *LockerHandler) GetByNumber(c echo.Context) error {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid locker number"})
	}
	reg, err := h.load(c)
	if err != nil {
		return h.fail(c, err)
	}
	rec, err := reg.Lookup(c.Param("location"), number)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, toLocker(rec))
}

// Allocate handles POST /v1/lockers/:id/allocate.  It returns 409 when the
// locker is already occupied, even if the caller saw it free earlier.
func (h *LockerHandler) Allocate(c echo.Context) error {
	var body AllocateRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	date := h.Now()
	if s := strings.TrimSpace(body.AllocatedDate); s != "" {
		d, err := time.Parse(model.DateLayout, s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "allocated_date must be YYYY-MM-DD"})
		}
		date = d
	}
	id := c.Param("id")
	return h.mutate(c, id, func(reg registry.Registry) (registry.Registry, error) {
		return reg.Allocate(id, body.OccupantName, body.OccupantGroup, date)
	})
}

// Release handles POST /v1/lockers/:id/release.  It returns 409 when the
// locker is not occupied.
func (h *LockerHandler) Release(c echo.Context) error {
	id := c.Param("id")
	return h.mutate(c, id, func(reg registry.Registry) (registry.Registry, error) {
		return reg.Release(id)
	})
}

// Export handles GET /v1/lockers/export.  It accepts the same filters as
// List and returns the matching lockers as an XLSX attachment.
func (h *LockerHandler) Export(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	reg, err := h.load(c)
	if err != nil {
		return h.fail(c, err)
	}
	data, err := export.XLSX(reg.Query(filter))
	if err != nil {
		h.Log.Error("export lockers failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to build spreadsheet"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", h.ExportFilename))
	return c.Blob(http.StatusOK, export.ContentType, data)
}

func (h *LockerHandler) load(c echo.Context) (registry.Registry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Manager.Initialize(c.Request().Context())
}

// mutate runs op against a freshly loaded registry and persists the result.
func (h *LockerHandler) mutate(c echo.Context, id string, op func(registry.Registry) (registry.Registry, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := c.Request().Context()
	reg, err := h.Manager.Initialize(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	next, err := op(reg)
	if err != nil {
		return h.fail(c, err)
	}
	rec, err := next.Get(id)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.Manager.Persist(ctx, next); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":  "locker updated but could not be saved",
			"locker": toLocker(rec),
		})
	}
	h.Log.Info("locker updated",
		zap.String("locker_id", rec.ID),
		zap.String("location", rec.Location),
		zap.Int("number", rec.Number),
		zap.String("status", string(rec.Status)))
	return c.JSON(http.StatusOK, toLocker(rec))
}

// fail maps registry and store errors to HTTP responses.  Caller errors
// carry their message; store errors are logged and reported generically.
func (h *LockerHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, registry.ErrRecordNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, registry.ErrAlreadyOccupied), errors.Is(err, registry.ErrNotOccupied):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, registry.ErrInvalidAllocation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, registry.ErrDuplicateLocker):
		h.Log.Error("duplicate locker identity", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrStoreWriteFailed):
		h.Log.Error("locker store write failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save locker store"})
	default:
		h.Log.Error("locker registry unavailable", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "locker store unreadable"})
	}
}

func parseFilter(c echo.Context) (registry.Filter, error) {
	f := registry.Filter{
		Name:     strings.TrimSpace(c.QueryParam("name")),
		Group:    strings.TrimSpace(c.QueryParam("group")),
		Location: c.QueryParam("location"),
	}
	if s := strings.TrimSpace(c.QueryParam("status")); s != "" && !strings.EqualFold(s, "all") {
		status, err := repository.ParseStatus(s)
		if err != nil {
			return f, errors.New("status must be available or occupied")
		}
		f.Status = status
	}
	if s := strings.TrimSpace(c.QueryParam("number")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return f, errors.New("number must be an integer")
		}
		f.Number = &n
	}
	return f, nil
}
