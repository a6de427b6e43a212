package memory

import (
	"context"
	"sort"

	"petpal/internal/domain/species"
)

type speciesRepo struct{ s *Store }

func (r *speciesRepo) ListSpecies(ctx context.Context) ([]species.Species, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]species.Species, 0, len(r.s.species))
	for _, sp := range r.s.species {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *speciesRepo) GetSpecies(ctx context.Context, id string) (species.Species, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sp, ok := r.s.species[id]
	if !ok {
		return species.Species{}, notFound("species", id)
	}
	return sp, nil
}

func (r *speciesRepo) ListBreeds(ctx context.Context, speciesID string) ([]species.Breed, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]species.Breed, 0)
	for _, b := range r.s.breeds {
		if b.SpeciesID == speciesID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *speciesRepo) GetBreed(ctx context.Context, id string) (species.Breed, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.breeds[id]
	if !ok {
		return species.Breed{}, notFound("breed", id)
	}
	return b, nil
}
