package middleware

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"rics-valuation/internal/infrastructure/kvstore"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionConfig controls the session cookie.
type SessionConfig struct {
	Secret            string
	AllowCrossSiteDev bool
	IsProduction      bool
}

const (
	SessionCookieName = "rics.sid"
	SessionKeyPrefix  = "session:"
	SessionMaxAge     = 24 * time.Hour

	sessionDataLocal = "session_data"
	sessionIDLocal   = "session_id"
)

// SessionUser is the shape stored in the session under "user".
type SessionUser struct {
	UserID     string    `json:"user_id"`
	Role       string    `json:"role"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Session loads the session named by the cookie from store before the
// handler runs and writes it back, with a fresh TTL, afterwards.
func Session(store kvstore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := parseSessionCookie(c.Cookies(SessionCookieName))

		var data map[string]interface{}
		if sessionID != "" {
			b, err := store.Get(c.Context(), SessionKeyPrefix+sessionID)
			switch {
			case err == nil:
				_ = json.Unmarshal(b, &data)
			case !errors.Is(err, kvstore.ErrNotFound):
				log.Warn().Err(err).Msg("session load failed")
			}
		}
		if data == nil {
			data = make(map[string]interface{})
		}

		c.Locals(sessionDataLocal, data)
		if u, ok := data["user"]; ok {
			c.Locals(userLocal, u)
		} else {
			c.Locals(userLocal, nil)
		}
		c.Locals(sessionIDLocal, sessionID)

		if err := c.Next(); err != nil {
			return err
		}

		sid, _ := c.Locals(sessionIDLocal).(string)
		if sid == "" {
			return nil
		}
		updated, _ := c.Locals(sessionDataLocal).(map[string]interface{})
		if len(updated) == 0 {
			return nil
		}
		b, err := json.Marshal(updated)
		if err != nil {
			return nil
		}
		if err := store.Set(c.Context(), SessionKeyPrefix+sid, b, SessionMaxAge); err != nil {
			log.Warn().Err(err).Msg("session save failed")
		}
		return nil
	}
}

// parseSessionCookie accepts "s:<id>" and "s:<id>.<signature>" as well as a bare id.
func parseSessionCookie(v string) string {
	if strings.HasPrefix(v, "s:") {
		parts := strings.SplitN(v[2:], ".", 2)
		return parts[0]
	}
	return v
}

// GetSessionID returns the current session id, empty when there is none.
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionIDLocal).(string)
	return sid
}

// EnsureSessionID returns the current session id, starting a session and
// setting its cookie when the request carried none.
func EnsureSessionID(c *fiber.Ctx, cfg SessionConfig) string {
	if sid := GetSessionID(c); sid != "" {
		return sid
	}
	sid := RegenerateSessionID(c)
	cookie := SessionCookieConfig(cfg)
	cookie.Value = "s:" + sid
	c.Cookie(&cookie)
	return sid
}

// SetSessionUser stores the user in the session. Call RegenerateSessionID
// first so a login never reuses an anonymous session id.
func SetSessionUser(c *fiber.Ctx, user SessionUser) {
	data, _ := c.Locals(sessionDataLocal).(map[string]interface{})
	if data == nil {
		data = make(map[string]interface{})
	}
	data["user"] = map[string]interface{}{
		"user_id":      user.UserID,
		"role":         user.Role,
		"logged_in_at": user.LoggedInAt.UTC().Format(time.RFC3339),
	}
	c.Locals(sessionDataLocal, data)
	c.Locals(userLocal, data["user"])
}

// RegenerateSessionID assigns a new session id; the caller sets the cookie.
func RegenerateSessionID(c *fiber.Ctx) string {
	newID := uuid.New().String()
	c.Locals(sessionIDLocal, newID)
	return newID
}

// DestroySession clears user and session data from Locals; the caller clears
// the cookie and the stored session.
func DestroySession(c *fiber.Ctx) {
	c.Locals(sessionDataLocal, make(map[string]interface{}))
	c.Locals(userLocal, nil)
}

// SessionCookieConfig returns the session cookie options.
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	sameSite := "Lax"
	if cfg.AllowCrossSiteDev {
		sameSite = "None"
	}
	secure := cfg.IsProduction && cfg.AllowCrossSiteDev
	return fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   int(SessionMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}
