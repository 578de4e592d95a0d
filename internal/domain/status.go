package domain

import "strings"

// Status is the lifecycle state of a report.
type Status string

const (
	StatusWorking  Status = "working"
	StatusComplete Status = "complete"
	StatusArchive  Status = "archive"
)

// legacy values written by older builds
const (
	legacyDraft     = "draft"
	legacyCompleted = "completed"
)

// NormalizeStatus maps legacy and missing values onto the closed enum.
// The bool reports whether the value changed.
func NormalizeStatus(s Status) (Status, bool) {
	switch s {
	case StatusWorking, StatusComplete, StatusArchive:
		return s, false
	case legacyDraft, "":
		return StatusWorking, true
	case legacyCompleted:
		return StatusComplete, true
	default:
		return StatusWorking, true
	}
}

// ParseStatus accepts current and legacy spellings from user input.
func ParseStatus(s string) (Status, error) {
	switch v := Status(strings.ToLower(strings.TrimSpace(s))); v {
	case StatusWorking, StatusComplete, StatusArchive:
		return v, nil
	case legacyDraft:
		return StatusWorking, nil
	case legacyCompleted:
		return StatusComplete, nil
	}
	return "", ErrInvalidStatus
}

// Mode selects how the valuation figure was produced.
type Mode string

const (
	ModeAutomatic Mode = "automatic"
	ModeManual    Mode = "manual"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAutomatic, ModeManual:
		return m, nil
	}
	return "", ErrInvalidMode
}

// Market classifications the engine reacts to. Any other value is neutral.
const (
	ConditionsStrong = "Strong"
	ConditionsNormal = "Normal"
	ConditionsWeak   = "Weak"

	LocationPrime        = "Prime"
	LocationGood         = "Good"
	LocationAverage      = "Average"
	LocationBelowAverage = "Below Average"
)
