package uploads

import (
	"errors"

	"rics-valuation/internal/application/photos"
	wizardsvc "rics-valuation/internal/application/wizard"
	"rics-valuation/internal/domain"
	"rics-valuation/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const photoField = "photo"

// Handlers embeds property photos into wizard sessions.
type Handlers struct {
	Manager *wizardsvc.Manager
	Options photos.Options
}

// UploadPhoto POST /api/v1/wizard/:sid/photo (multipart field "photo").
// A photo the store cannot hold stays on the working copy and the response is 413.
func (h *Handlers) UploadPhoto(c *fiber.Ctx) error {
	s, err := h.Manager.Get(c.Params("sid"))
	if err != nil {
		return err
	}
	fh, err := c.FormFile(photoField)
	if err != nil {
		return response.BadRequest(c, "photo file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	uri, err := photos.Compress(f, h.Options)
	if err != nil {
		if errors.Is(err, photos.ErrNotImage) {
			log.Info().Str("session", s.ID).Str("file", fh.Filename).Msg("upload: rejected non-image photo")
			return response.BadRequest(c, photos.ErrNotImage.Error())
		}
		return err
	}
	if err := s.SetPhoto(c.Context(), uri); err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			log.Warn().Str("session", s.ID).Int("bytes", len(uri)).Msg("upload: photo kept on working copy, store quota exceeded")
		}
		return err
	}
	return response.Success(c, "Photo uploaded", fiber.Map{"photo": uri}, fiber.Map{"bytes": len(uri)})
}

// RemovePhoto DELETE /api/v1/wizard/:sid/photo
func (h *Handlers) RemovePhoto(c *fiber.Ctx) error {
	s, err := h.Manager.Get(c.Params("sid"))
	if err != nil {
		return err
	}
	if err := s.RemovePhoto(c.Context()); err != nil {
		return err
	}
	return response.Success(c, "Photo removed", nil, nil)
}
