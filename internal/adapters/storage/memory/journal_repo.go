package memory

import (
	"context"
	"sort"

	"petpal/internal/domain/journal"
)

type entryRepo struct{ s *Store }

func (r *entryRepo) Create(ctx context.Context, e journal.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if e.ID == "" {
		return errIDRequired
	}
	if _, ok := r.s.pets[e.PetID]; !ok {
		return notFound("pet", e.PetID)
	}
	r.s.entries[e.ID] = e
	return nil
}

func (r *entryRepo) Update(ctx context.Context, e journal.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.entries[e.ID]; !ok {
		return notFound("entry", e.ID)
	}
	r.s.entries[e.ID] = e
	return nil
}

func (r *entryRepo) GetByID(ctx context.Context, id string) (journal.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.entries[id]
	if !ok {
		return journal.Entry{}, notFound("entry", id)
	}
	return e, nil
}

func (r *entryRepo) ListByPet(ctx context.Context, petID string) ([]journal.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]journal.Entry, 0)
	for _, e := range r.s.entries {
		if e.PetID == petID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *entryRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.entries[id]; !ok {
		return notFound("entry", id)
	}
	delete(r.s.entries, id)
	return nil
}
