package auth

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ValuerUserID is the session user id for the single valuer account.
const ValuerUserID = "valuer"

const RoleValuer = "valuer"

// LoginInput for login request body.
type LoginInput struct {
	Passcode string `json:"passcode"`
}

// SessionUserShape is the object returned by /me.
type SessionUserShape struct {
	UserID     string    `json:"user_id"`
	Role       string    `json:"role"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Verifier checks a passcode (bcrypt in production, fakes in tests).
type Verifier interface {
	Verify(passcode string) error
}

// PasscodeVerifier compares against a single bcrypt hash.
type PasscodeVerifier struct{ Hash string }

func (p PasscodeVerifier) Verify(passcode string) error {
	if strings.TrimSpace(p.Hash) == "" {
		return ErrLoginDisabled
	}
	if passcode == "" {
		return ErrPasscodeRequired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(passcode)); err != nil {
		return ErrIncorrectPasscode
	}
	return nil
}

// HashPasscode returns the bcrypt hash to put in ACCESS_PASSCODE_HASH.
func HashPasscode(passcode string) (string, error) {
	if passcode == "" {
		return "", ErrPasscodeRequired
	}
	b, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyUser validates the session user and returns the shape for /me.
func VerifyUser(sessionUser interface{}) (*SessionUserShape, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	userID, _ := m["user_id"].(string)
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	out := &SessionUserShape{
		UserID: userID,
		Role:   str(m["role"]),
	}
	if ts := str(m["logged_in_at"]); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			out.LoggedInAt = t
		}
	}
	return out, nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
