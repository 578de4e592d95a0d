package reports

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"rics-valuation/internal/application/render"
	reportsvc "rics-valuation/internal/application/reports"
	"rics-valuation/internal/domain"
	"rics-valuation/internal/middleware"
	"rics-valuation/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers serves the report dashboard.
type Handlers struct {
	Store   *reportsvc.Store
	Session middleware.SessionConfig
	Now     func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type statusRequest struct {
	Status string `json:"status"`
}

// List GET /api/v1/reports?search=&status=&start=&end=
// The filter is remembered for the browser session.
func (h *Handlers) List(c *fiber.Ctx) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	sid := middleware.EnsureSessionID(c, h.Session)
	if err := h.Store.SaveFilterState(c.Context(), sid, f); err != nil {
		log.Warn().Err(err).Msg("reports: filter state not saved")
	}
	records := h.Store.List(c.Context(), f)
	return response.Success(c, "Reports fetched", records, fiber.Map{
		"count":  len(records),
		"filter": f,
	})
}

func filterFromQuery(c *fiber.Ctx) (reportsvc.Filter, error) {
	f := reportsvc.Filter{Search: c.Query("search")}
	if s := strings.TrimSpace(c.Query("status")); s != "" && s != "all" {
		status, err := domain.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = string(status)
	}
	if start := c.Query("start"); start != "" {
		f.DateRange = &reportsvc.DateRange{Start: start, End: c.Query("end")}
		if err := f.DateRange.Validate(); err != nil {
			return f, err
		}
	}
	return f, nil
}

// Filters GET /api/v1/reports/filters returns the last saved filter, or an empty one.
func (h *Handlers) Filters(c *fiber.Ctx) error {
	f, _ := h.Store.LoadFilterState(c.Context(), middleware.GetSessionID(c))
	return response.Success(c, "Filter state fetched", f, nil)
}

// Get GET /api/v1/reports/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	rec, ok := h.Store.FindByID(c.Context(), c.Params("id"))
	if !ok {
		return domain.ErrReportNotFound
	}
	return response.Success(c, "Report fetched", rec, nil)
}

// Delete DELETE /api/v1/reports/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	removed, err := h.Store.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrReportNotFound
	}
	return response.Success(c, "Report deleted", nil, nil)
}

// ChangeStatus PATCH /api/v1/reports/:id/status {status}
func (h *Handlers) ChangeStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return err
	}
	rec, err := h.Store.ChangeStatus(c.Context(), c.Params("id"), status)
	if err != nil {
		return err
	}
	return response.Success(c, "Report status updated", rec, nil)
}

// Archive POST /api/v1/reports/:id/archive
func (h *Handlers) Archive(c *fiber.Ctx) error {
	rec, err := h.Store.ChangeStatus(c.Context(), c.Params("id"), domain.StatusArchive)
	if err != nil {
		return err
	}
	return response.Success(c, "Report archived", rec, nil)
}

// Export GET /api/v1/reports/:id/export renders the stored report as PDF
// whatever its state.
func (h *Handlers) Export(c *fiber.Ctx) error {
	rec, ok := h.Store.FindByID(c.Context(), c.Params("id"))
	if !ok {
		return domain.ErrReportNotFound
	}
	now := h.now()
	var buf bytes.Buffer
	if err := render.PDF(&buf, rec, now); err != nil {
		return err
	}
	return response.Attachment(c, render.Filename(rec, now), "application/pdf", buf.Bytes())
}
