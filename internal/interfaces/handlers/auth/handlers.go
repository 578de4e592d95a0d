package auth

import (
	"errors"
	"time"

	authsvc "rics-valuation/internal/application/auth"
	"rics-valuation/internal/infrastructure/kvstore"
	"rics-valuation/internal/middleware"
	"rics-valuation/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Verifier authsvc.Verifier
	Sessions kvstore.Store
	Config   middleware.SessionConfig
	Now      func() time.Time
}

// Login POST /api/v1/auth/login: check the passcode, start a fresh session, set the cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.Verifier == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req authsvc.LoginInput
	if err := c.BodyParser(&req); err != nil || req.Passcode == "" {
		return response.BadRequest(c, authsvc.ErrPasscodeRequired.Error())
	}

	if err := h.Verifier.Verify(req.Passcode); err != nil {
		switch {
		case errors.Is(err, authsvc.ErrPasscodeRequired):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, authsvc.ErrIncorrectPasscode):
			log.Info().Str("ip", c.IP()).Msg("auth/login: incorrect passcode")
			return response.Unauthorized(c, err.Error())
		case errors.Is(err, authsvc.ErrLoginDisabled):
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		default:
			return err
		}
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	sessionID := middleware.RegenerateSessionID(c)
	user := middleware.SessionUser{
		UserID:     authsvc.ValuerUserID,
		Role:       authsvc.RoleValuer,
		LoggedInAt: now(),
	}
	middleware.SetSessionUser(c, user)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	return response.Success(c, "Login successful", fiber.Map{"user": user}, nil)
}

// Me GET /api/v1/auth/me: the current session user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	sessionUser := middleware.GetUser(c)
	user, err := authsvc.VerifyUser(sessionUser)
	if err != nil {
		log.Debug().Str("path", "/auth/me").Bool("session_id_present", middleware.GetSessionID(c) != "").
			Msg("auth/me: not authenticated")
		return response.Unauthorized(c, "Not authenticated")
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

// Logout DELETE /api/v1/auth/logout: drop the stored session and clear the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if sessionID := middleware.GetSessionID(c); sessionID != "" && h.Sessions != nil {
		if err := h.Sessions.Delete(c.Context(), middleware.SessionKeyPrefix+sessionID); err != nil {
			log.Warn().Err(err).Msg("auth/logout: session delete failed")
		}
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}
