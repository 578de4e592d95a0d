package wizard

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"rics-valuation/internal/application/render"
	wizardsvc "rics-valuation/internal/application/wizard"
	"rics-valuation/internal/domain"
	"rics-valuation/internal/pkg/response"
	"rics-valuation/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers drives wizard sessions over HTTP.
type Handlers struct {
	Manager *wizardsvc.Manager
	Now     func() time.Time
}

type startRequest struct {
	SeedExamples bool `json:"seedExamples"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type manualValuationRequest struct {
	EstimatedValue *float64 `json:"estimatedValue" validate:"required"`
	LowerRange     *float64 `json:"lowerRange" validate:"required"`
	UpperRange     *float64 `json:"upperRange" validate:"required"`
}

type adjustmentRequest struct {
	Value *float64 `json:"value" validate:"required"`
}

// decodeBody reads an optional JSON body into v and validates it.
func decodeBody(c *fiber.Ctx, v interface{}) error {
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), v); err != nil {
			return domain.ErrInvalidBody
		}
	}
	return validation.Struct(c.Context(), v)
}

func (h *Handlers) session(c *fiber.Ctx) (*wizardsvc.Session, error) {
	return h.Manager.Get(c.Params("sid"))
}

func (h *Handlers) view(c *fiber.Ctx, s *wizardsvc.Session, message string) error {
	return response.Success(c, message, s.View(), nil)
}

// Start POST /api/v1/wizard {seedExamples?}
func (h *Handlers) Start(c *fiber.Ctx) error {
	var req startRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	s := h.Manager.Start(req.SeedExamples)
	return response.SuccessCreated(c, "Wizard started", s.View(), nil)
}

// Open POST /api/v1/wizard/open/:id
func (h *Handlers) Open(c *fiber.Ctx) error {
	s, err := h.Manager.Open(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Report opened", s.View(), nil)
}

// Get GET /api/v1/wizard/:sid
func (h *Handlers) Get(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return h.view(c, s, "Wizard session fetched")
}

// SaveStep POST /api/v1/wizard/:sid/steps/:step
func (h *Handlers) SaveStep(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	step, err := stepParam(c)
	if err != nil {
		return err
	}
	data, err := wizardsvc.DecodeStep(c.Context(), step, c.Body())
	if err != nil {
		return err
	}
	if err := s.SaveStepData(c.Context(), data); err != nil {
		return err
	}
	return h.view(c, s, "Step saved")
}

// Next POST /api/v1/wizard/:sid/next with the current step's form as body.
func (h *Handlers) Next(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if _, err := s.NextForm(c.Context(), c.Body()); err != nil {
		return err
	}
	return h.view(c, s, "Moved to next step")
}

// Previous POST /api/v1/wizard/:sid/previous
func (h *Handlers) Previous(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	s.Previous()
	return h.view(c, s, "Moved to previous step")
}

// GoTo POST /api/v1/wizard/:sid/goto/:step with the current step's form as body.
func (h *Handlers) GoTo(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	step, err := stepParam(c)
	if err != nil {
		return err
	}
	if _, err := s.GoToStepForm(c.Context(), step, c.Body()); err != nil {
		return err
	}
	return h.view(c, s, "Moved to step "+strconv.Itoa(step))
}

func stepParam(c *fiber.Ctx) (int, error) {
	step, err := strconv.Atoi(c.Params("step"))
	if err != nil {
		return 0, domain.ErrInvalidStep
	}
	return step, nil
}

// AddComparable POST /api/v1/wizard/:sid/comparables
func (h *Handlers) AddComparable(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	comp, err := s.AddComparable(c.Context())
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Comparable added", comp, nil)
}

// UpdateComparable PATCH /api/v1/wizard/:sid/comparables/:cid
func (h *Handlers) UpdateComparable(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var patch domain.ComparablePatch
	if err := decodeBody(c, &patch); err != nil {
		return err
	}
	comp, err := s.UpdateComparable(c.Context(), c.Params("cid"), patch)
	if err != nil {
		return err
	}
	return response.Success(c, "Comparable updated", comp, nil)
}

// UpdateAdjustment PUT /api/v1/wizard/:sid/comparables/:cid/adjustments/:field {value}
func (h *Handlers) UpdateAdjustment(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	field, err := domain.ParseAdjustmentField(c.Params("field"))
	if err != nil {
		return err
	}
	var req adjustmentRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	comp, err := s.UpdateAdjustment(c.Context(), c.Params("cid"), field, *req.Value)
	if err != nil {
		return err
	}
	return response.Success(c, "Adjustment updated", comp, nil)
}

// RemoveComparable DELETE /api/v1/wizard/:sid/comparables/:cid
func (h *Handlers) RemoveComparable(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if err := s.RemoveComparable(c.Context(), c.Params("cid")); err != nil {
		return err
	}
	return h.view(c, s, "Comparable removed")
}

// SetMode PUT /api/v1/wizard/:sid/mode {mode}
func (h *Handlers) SetMode(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req modeRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		return err
	}
	if err := s.SetMode(c.Context(), mode); err != nil {
		return err
	}
	return h.view(c, s, "Valuation mode updated")
}

// SetManualValuation PUT /api/v1/wizard/:sid/valuation/manual
func (h *Handlers) SetManualValuation(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req manualValuationRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if err := s.SetManualValuation(c.Context(), *req.EstimatedValue, *req.LowerRange, *req.UpperRange); err != nil {
		return err
	}
	return h.view(c, s, "Manual valuation saved")
}

// Calculate POST /api/v1/wizard/:sid/valuation/calculate
func (h *Handlers) Calculate(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	applied, err := s.Recalculate(c.Context())
	if err != nil {
		return err
	}
	msg := "Valuation calculated"
	if !applied {
		msg = "Valuation unchanged"
	}
	return response.Success(c, msg, s.View(), fiber.Map{"calculated": applied})
}

// SetStatus PUT /api/v1/wizard/:sid/status {status}
func (h *Handlers) SetStatus(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return err
	}
	if err := s.SetStatus(c.Context(), status); err != nil {
		return err
	}
	return h.view(c, s, "Report status updated")
}

// Finalize POST /api/v1/wizard/:sid/finalize with the valuer form; returns the PDF.
// An empty body keeps the valuer already on the record.
func (h *Handlers) Finalize(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	valuer := wizardsvc.ValuerStep(s.Record().Valuer)
	data, err := wizardsvc.DecodeStep(c.Context(), wizardsvc.StepValuer, c.Body())
	if err != nil {
		return err
	}
	if v, ok := data.(wizardsvc.ValuerStep); ok {
		valuer = v
	}
	rec, err := s.Finalize(c.Context(), valuer)
	if err != nil {
		return err
	}

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	var buf bytes.Buffer
	if err := render.PDF(&buf, rec, now); err != nil {
		return err
	}
	log.Info().Str("session", s.ID).Str("report", rec.ID).Int("bytes", buf.Len()).Msg("report finalized")
	return response.Attachment(c, render.Filename(rec, now), "application/pdf", buf.Bytes())
}

// Close POST /api/v1/wizard/:sid/close saves and ends the session.
func (h *Handlers) Close(c *fiber.Ctx) error {
	if err := h.Manager.Close(c.Context(), c.Params("sid")); err != nil {
		return err
	}
	return response.Success(c, "Wizard closed", nil, nil)
}

// DeleteReport DELETE /api/v1/wizard/:sid/report removes the report and ends the session.
func (h *Handlers) DeleteReport(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if err := s.Delete(c.Context()); err != nil {
		return err
	}
	h.Manager.Drop(s.ID)
	return response.Success(c, "Report deleted", nil, nil)
}
