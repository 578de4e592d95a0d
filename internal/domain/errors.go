package domain

import (
	"errors"
	"strings"
)

var (
	ErrReportNotFound     = errors.New("Report not found")
	ErrComparableNotFound = errors.New("Comparable not found")
	ErrQuotaExceeded      = errors.New("Storage quota exceeded: payload too large, likely the embedded photo")
	ErrInvalidStatus      = errors.New("Invalid report status")
	ErrInvalidMode        = errors.New("Invalid valuation mode")
	ErrInvalidStep        = errors.New("Invalid wizard step")
	ErrInvalidField       = errors.New("Invalid adjustment field")
	ErrSessionNotFound    = errors.New("Wizard session not found")
	ErrInvalidBody        = errors.New("Invalid request body")
	ErrInvalidDate        = errors.New("Invalid date")
)

// ValidationError carries every rule a record failed at finalization.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Issues, "; ")
}
