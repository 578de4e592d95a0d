package middleware

import (
	"errors"

	"rics-valuation/internal/domain"
	"rics-valuation/internal/pkg/response"
	"rics-valuation/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const msgNotReady = "Report is not ready to finalize"

// ErrorHandler is the global error handler. Handlers return domain errors
// and this maps them onto status codes in the standard error format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Message, fe.Code, nil)
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return response.Issues(c, msgNotReady, fiber.StatusUnprocessableEntity, ve.Issues)
	}
	if fields := validation.FieldErrors(err); fields != nil {
		return response.Issues(c, "Invalid request body", fiber.StatusBadRequest, validation.Messages(err))
	}

	switch {
	case errors.Is(err, domain.ErrReportNotFound),
		errors.Is(err, domain.ErrComparableNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, domain.ErrQuotaExceeded):
		return response.Error(c, domain.ErrQuotaExceeded.Error(), fiber.StatusRequestEntityTooLarge, nil)
	case errors.Is(err, domain.ErrInvalidBody):
		return response.Error(c, domain.ErrInvalidBody.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidMode),
		errors.Is(err, domain.ErrInvalidStep),
		errors.Is(err, domain.ErrInvalidField),
		errors.Is(err, domain.ErrInvalidDate):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}

	log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("path", c.Path()).Msg("unhandled error")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
