package auth

import "errors"

var (
	ErrPasscodeRequired  = errors.New("Passcode is required")
	ErrIncorrectPasscode = errors.New("Incorrect passcode")
	ErrLoginDisabled     = errors.New("Login is not enabled")
	ErrNotAuthenticated  = errors.New("Not authenticated")
)
