package memory

import (
	"context"
	"sort"

	"petpal/internal/domain/photos"
)

type photoRepo struct{ s *Store }

func (r *photoRepo) Create(ctx context.Context, p photos.Photo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.ID == "" {
		return errIDRequired
	}
	if _, ok := r.s.pets[p.PetID]; !ok {
		return notFound("pet", p.PetID)
	}
	r.s.photos[p.ID] = p
	return nil
}

func (r *photoRepo) GetByID(ctx context.Context, id string) (photos.Photo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.photos[id]
	if !ok {
		return photos.Photo{}, notFound("photo", id)
	}
	return p, nil
}

func (r *photoRepo) ListByPet(ctx context.Context, petID string) ([]photos.Photo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]photos.Photo, 0)
	for _, p := range r.s.photos {
		if p.PetID == petID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *photoRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.photos[id]; !ok {
		return notFound("photo", id)
	}
	delete(r.s.photos, id)
	return nil
}
