package memory

import (
	"context"
	"sort"
	"time"

	"petpal/internal/domain/trackers"
)

type careEventRepo struct{ s *Store }

func (r *careEventRepo) Create(ctx context.Context, e trackers.CareEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if e.ID == "" {
		return errIDRequired
	}
	if _, exists := r.s.careEvents[e.ID]; exists {
		return ErrConflict
	}
	if _, ok := r.s.pets[e.PetID]; !ok {
		return notFound("pet", e.PetID)
	}
	r.s.careEvents[e.ID] = e
	return nil
}

func (r *careEventRepo) GetByID(ctx context.Context, id string) (trackers.CareEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.careEvents[id]
	if !ok {
		return trackers.CareEvent{}, notFound("care event", id)
	}
	return e, nil
}

func (r *careEventRepo) ListByPet(ctx context.Context, petID string, filter trackers.ListFilter) ([]trackers.CareEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]trackers.CareEvent, 0)
	for _, e := range r.s.careEvents {
		if e.PetID == petID && filter.Matches(e) {
			out = append(out, e)
		}
	}

	// Más reciente primero
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *careEventRepo) Void(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.careEvents[id]
	if !ok {
		return notFound("care event", id)
	}
	e.Status = trackers.StatusVoided
	e.VoidedAt = &at
	r.s.careEvents[id] = e
	return nil
}
