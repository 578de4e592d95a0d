package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rics-valuation/internal/domain"
	"rics-valuation/internal/infrastructure/kvstore"

	"github.com/rs/zerolog/log"
)

const (
	filterStatePrefix = "dashboardFilters:"
	// FilterStateTTL bounds how long a dashboard session remembers its filters.
	FilterStateTTL = 24 * time.Hour
	dayLayout      = "2006-01-02"
)

// DateRange selects reports by the calendar day of their last activity.
// End defaults to Start.
type DateRange struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end,omitempty"`
}

// Validate reports ErrInvalidDate when either bound is not a day.
func (r DateRange) Validate() error {
	if _, ok := parseDay(r.Start, time.UTC); !ok {
		return fmt.Errorf("%w: start %q", domain.ErrInvalidDate, r.Start)
	}
	if r.End == "" {
		return nil
	}
	if _, ok := parseDay(r.End, time.UTC); !ok {
		return fmt.Errorf("%w: end %q", domain.ErrInvalidDate, r.End)
	}
	return nil
}

// Filter is the dashboard search state.
type Filter struct {
	Search    string     `json:"search"`
	Status    string     `json:"status"`
	DateRange *DateRange `json:"dateRange"`
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" && f.Status == "" && (f.DateRange == nil || f.DateRange.Start == "")
}

// Apply returns the records matching f without modifying records. A date
// range that does not parse matches nothing.
func (f Filter) Apply(records []*domain.ValuationRecord, loc *time.Location) []*domain.ValuationRecord {
	if loc == nil {
		loc = time.Local
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var from, to time.Time
	hasRange := false
	if f.DateRange != nil && f.DateRange.Start != "" {
		start, okStart := parseDay(f.DateRange.Start, loc)
		end, okEnd := start, okStart
		if f.DateRange.End != "" {
			end, okEnd = parseDay(f.DateRange.End, loc)
		}
		if !okStart || !okEnd {
			return []*domain.ValuationRecord{}
		}
		from, to, hasRange = start, end, true
	}

	out := make([]*domain.ValuationRecord, 0, len(records))
	for _, r := range records {
		if search != "" && !matchesSearch(r, search) {
			continue
		}
		if hasRange {
			at := r.LastActivity()
			if at.IsZero() {
				continue
			}
			day := truncateDay(at.In(loc))
			if day.Before(from) || day.After(to) {
				continue
			}
		}
		if f.Status != "" && string(r.Status) != f.Status {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesSearch(r *domain.ValuationRecord, term string) bool {
	for _, field := range []string{r.Property.Address, r.Property.Postcode, r.Valuer.Company} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func parseDay(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.ParseInLocation(dayLayout, s, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return truncateDay(t.In(loc)), true
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SaveFilterState remembers the dashboard filter for a browser session.
func (s *Store) SaveFilterState(ctx context.Context, sessionID string, f Filter) error {
	if sessionID == "" {
		return nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return s.KV.Set(ctx, filterStatePrefix+sessionID, b, FilterStateTTL)
}

// LoadFilterState returns the filter last saved for sessionID.
func (s *Store) LoadFilterState(ctx context.Context, sessionID string) (Filter, bool) {
	var f Filter
	if sessionID == "" {
		return f, false
	}
	b, err := s.KV.Get(ctx, filterStatePrefix+sessionID)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("dashboard filter state unreadable")
		}
		return f, false
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return Filter{}, false
	}
	return f, true
}
