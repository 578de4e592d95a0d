package wizard

import (
	"context"

	"rics-valuation/internal/domain"
)

// AddComparable appends an empty comparable with a fresh id and saves.
func (s *Session) AddComparable(ctx context.Context) (domain.Comparable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := domain.Comparable{ID: s.nextComparableID()}
	s.record.Comparables = append(s.record.Comparables, c)
	return c, s.persist(ctx)
}

// RemoveComparable drops the comparable with id and saves.
func (s *Session) RemoveComparable(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.record.ComparableIndex(id)
	if i < 0 {
		return domain.ErrComparableNotFound
	}
	comps := s.record.Comparables
	s.record.Comparables = append(comps[:i:i], comps[i+1:]...)
	return s.persist(ctx)
}

// UpdateComparable applies patch to one comparable and saves.
func (s *Session) UpdateComparable(ctx context.Context, id string, patch domain.ComparablePatch) (domain.Comparable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.record.ComparableIndex(id)
	if i < 0 {
		return domain.Comparable{}, domain.ErrComparableNotFound
	}
	patch.Apply(&s.record.Comparables[i])
	return s.record.Comparables[i], s.persist(ctx)
}

// UpdateAdjustment sets one adjustment percentage on a comparable and saves.
func (s *Session) UpdateAdjustment(ctx context.Context, id string, field domain.AdjustmentField, value float64) (domain.Comparable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.record.ComparableIndex(id)
	if i < 0 {
		return domain.Comparable{}, domain.ErrComparableNotFound
	}
	s.record.Comparables[i].Adjustments.Set(field, value)
	return s.record.Comparables[i], s.persist(ctx)
}
