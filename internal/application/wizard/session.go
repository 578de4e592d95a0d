// Package wizard drives one valuation report through the six-step form,
// saving the working copy to the report store on every transition.
package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"rics-valuation/internal/application/reports"
	"rics-valuation/internal/application/valuation"
	"rics-valuation/internal/domain"
)

const comparableIDPrefix = "comp"

// Options configures how sessions start.
type Options struct {
	SeedExamples bool
	Now          func() time.Time
	// IdleTimeout is how long the Manager keeps a session nobody touches.
	// Zero means DefaultIdleTimeout.
	IdleTimeout time.Duration
}

// Review is the read-only summary shown after the valuation step.
type Review struct {
	Property   domain.Property         `json:"property"`
	Inspection domain.Inspection       `json:"inspection"`
	Valuation  *domain.ValuationResult `json:"valuation"`
	Status     domain.Status           `json:"status"`
}

// Session owns the working copy of one report. The working copy is detached
// from the stored collection and only written back through the store.
type Session struct {
	ID string

	store *reports.Store

	mu      sync.Mutex
	record  *domain.ValuationRecord
	step    int
	compSeq int
	review  *Review
}

// View is a snapshot of a session for callers outside the package.
type View struct {
	SessionID    string                  `json:"sessionId"`
	Step         int                     `json:"step"`
	Mode         domain.Mode             `json:"mode"`
	Record       *domain.ValuationRecord `json:"record"`
	Review       *Review                 `json:"review,omitempty"`
	PricePerArea *float64                `json:"pricePerArea"`
}

// Start opens a session on a new, unsaved report.
func Start(store *reports.Store, opts Options) *Session {
	now := nowFunc(opts)
	rec := domain.NewRecord(now())
	if opts.SeedExamples {
		rec.Comparables = domain.ExampleComparables(now())
	}
	return newSession(store, rec)
}

// Open starts a session on a copy of a stored report.
func Open(ctx context.Context, store *reports.Store, id string) (*Session, error) {
	rec, ok := store.FindByID(ctx, id)
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	rec.Normalize()
	return newSession(store, rec.Clone()), nil
}

func newSession(store *reports.Store, rec *domain.ValuationRecord) *Session {
	return &Session{
		store:   store,
		record:  rec,
		step:    FirstStep,
		compSeq: comparableSeq(rec.Comparables),
	}
}

// comparableSeq resumes the id counter past both the comparable count and
// the highest comp<N> already in use.
func comparableSeq(comps []domain.Comparable) int {
	seq := len(comps)
	for _, c := range comps {
		if !strings.HasPrefix(c.ID, comparableIDPrefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(c.ID, comparableIDPrefix)); err == nil && n > seq {
			seq = n
		}
	}
	return seq
}

func nowFunc(opts Options) func() time.Time {
	if opts.Now != nil {
		return opts.Now
	}
	return time.Now
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		SessionID: s.ID,
		Step:      s.step,
		Mode:      s.record.ValuationMode(),
		Record:    s.record.Clone(),
	}
	if s.review != nil {
		r := *s.review
		v.Review = &r
	}
	if s.record.Valuation != nil {
		if ppa, ok := valuation.PricePerArea(s.record.Valuation.EstimatedValue, s.record.Property.FloorArea); ok {
			v.PricePerArea = &ppa
		}
	}
	return v
}

// Record returns a copy of the working record.
func (s *Session) Record() *domain.ValuationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Step is the current step number.
func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// SaveStepData copies data into the record and saves it.
func (s *Session) SaveStepData(ctx context.Context, data StepData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data != nil {
		data.applyTo(s.record)
	}
	return s.persist(ctx)
}

// Next saves the current step and advances. Leaving the market step runs
// the engine unless the report is in manual mode; leaving the valuation step
// builds the review summary.
func (s *Session) Next(ctx context.Context, data StepData) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advance(ctx, data)
}

// NextForm is Next with body decoded as the form of the step the session is
// on when the lock is taken.
func (s *Session) NextForm(ctx context.Context, body []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := DecodeStep(ctx, s.step, body)
	if err != nil {
		return s.step, err
	}
	return s.advance(ctx, data)
}

// advance is the body of Next. Caller holds mu.
func (s *Session) advance(ctx context.Context, data StepData) (int, error) {
	if err := s.leave(ctx, data); err != nil {
		return s.step, err
	}
	if s.step < LastStep {
		s.step++
	}
	return s.step, nil
}

// Previous steps back without saving.
func (s *Session) Previous() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step > FirstStep {
		s.step--
	}
	return s.step
}

// GoToStep saves the current step, with the same side effects as Next, and
// jumps to step.
func (s *Session) GoToStep(ctx context.Context, step int, data StepData) (int, error) {
	if step < FirstStep || step > LastStep {
		return 0, fmt.Errorf("%w: %d", domain.ErrInvalidStep, step)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jump(ctx, step, data)
}

// GoToStepForm is GoToStep with body decoded under the session lock, as in
// NextForm.
func (s *Session) GoToStepForm(ctx context.Context, step int, body []byte) (int, error) {
	if step < FirstStep || step > LastStep {
		return 0, fmt.Errorf("%w: %d", domain.ErrInvalidStep, step)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := DecodeStep(ctx, s.step, body)
	if err != nil {
		return s.step, err
	}
	return s.jump(ctx, step, data)
}

func (s *Session) jump(ctx context.Context, step int, data StepData) (int, error) {
	if err := s.leave(ctx, data); err != nil {
		return s.step, err
	}
	s.step = step
	return s.step, nil
}

// leave applies the exit side effects of the current step. Caller holds mu.
func (s *Session) leave(ctx context.Context, data StepData) error {
	if data != nil {
		if data.Step() != s.step {
			return fmt.Errorf("%w: form for step %d submitted on step %d", domain.ErrInvalidStep, data.Step(), s.step)
		}
		data.applyTo(s.record)
	}
	switch s.step {
	case StepMarket:
		valuation.Apply(s.record)
	case StepValuation:
		s.review = &Review{
			Property:   s.record.Property,
			Inspection: s.record.Inspection,
			Valuation:  cloneResult(s.record.Valuation),
			Status:     s.record.Status,
		}
	}
	return s.persist(ctx)
}

// SetMode switches between automatic and manual valuation. Switching to
// automatic recalculates when the report has comparables; switching to
// manual keeps the current figures for editing.
func (s *Session) SetMode(ctx context.Context, mode domain.Mode) error {
	if mode != domain.ModeAutomatic && mode != domain.ModeManual {
		return domain.ErrInvalidMode
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record.Valuation == nil {
		s.record.Valuation = &domain.ValuationResult{}
	}
	s.record.Valuation.Mode = mode
	if mode == domain.ModeAutomatic && len(s.record.Comparables) > 0 {
		valuation.Apply(s.record)
	}
	return s.persist(ctx)
}

// SetManualValuation stores user-entered figures and puts the report in
// manual mode. The range is only checked at finalization.
func (s *Session) SetManualValuation(ctx context.Context, estimated, lower, upper float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record.Valuation == nil {
		s.record.Valuation = &domain.ValuationResult{}
	}
	v := s.record.Valuation
	v.Mode = domain.ModeManual
	v.EstimatedValue = estimated
	v.LowerRange = lower
	v.UpperRange = upper
	return s.persist(ctx)
}

// Recalculate runs the engine on demand and saves when it produced a result.
func (s *Session) Recalculate(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !valuation.Apply(s.record) {
		return false, nil
	}
	return true, s.persist(ctx)
}

// SetPhoto embeds a compressed photo. If the store rejects the size, the
// photo stays on the working copy until removed.
func (s *Session) SetPhoto(ctx context.Context, dataURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Photo = dataURI
	return s.persist(ctx)
}

func (s *Session) RemovePhoto(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Photo = ""
	return s.persist(ctx)
}

// SetStatus changes the report status from inside the form.
func (s *Session) SetStatus(ctx context.Context, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Status = status
	return s.persist(ctx)
}

// Finalize records the valuer, checks the sign-off rules and marks the
// report complete. On a validation failure nothing is saved and the working
// copy keeps its edits.
func (s *Session) Finalize(ctx context.Context, valuer ValuerStep) (*domain.ValuationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	valuer.applyTo(s.record)
	if err := valuation.ValidateForFinalization(ctx, s.record); err != nil {
		return nil, err
	}
	prev := s.record.Status
	s.record.Status = domain.StatusComplete
	if err := s.persist(ctx); err != nil {
		s.record.Status = prev
		return nil, err
	}
	return s.record.Clone(), nil
}

// Save writes the working copy back, as when returning to the dashboard.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx)
}

// Delete removes the session's report from the store.
func (s *Session) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed, err := s.store.Delete(ctx, s.record.ID)
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrReportNotFound
	}
	return nil
}

// persist saves the working copy. Caller holds mu.
func (s *Session) persist(ctx context.Context) error {
	return s.store.Upsert(ctx, s.record)
}

// nextComparableID hands out comp<N>, skipping ids the record already uses.
// Caller holds mu.
func (s *Session) nextComparableID() string {
	for {
		s.compSeq++
		id := comparableIDPrefix + strconv.Itoa(s.compSeq)
		if s.record.ComparableIndex(id) < 0 {
			return id
		}
	}
}

func cloneResult(v *domain.ValuationResult) *domain.ValuationResult {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
