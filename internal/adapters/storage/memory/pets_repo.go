package memory

import (
	"context"
	"sort"

	"petpal/internal/domain/pets"
)

type petRepo struct{ s *Store }

func (r *petRepo) Create(ctx context.Context, p pets.Pet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.ID == "" {
		return errIDRequired
	}
	if _, exists := r.s.pets[p.ID]; exists {
		return ErrConflict
	}
	if r.microchipTaken(p) {
		return ErrConflict
	}
	r.s.pets[p.ID] = p
	return nil
}

func (r *petRepo) Update(ctx context.Context, p pets.Pet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.pets[p.ID]; !exists {
		return notFound("pet", p.ID)
	}
	if r.microchipTaken(p) {
		return ErrConflict
	}
	r.s.pets[p.ID] = p
	return nil
}

// microchipTaken: el microchip es único cuando viene. Requiere el lock tomado.
func (r *petRepo) microchipTaken(p pets.Pet) bool {
	if p.MicrochipNumber == "" {
		return false
	}
	for _, x := range r.s.pets {
		if x.ID != p.ID && x.MicrochipNumber == p.MicrochipNumber {
			return true
		}
	}
	return false
}

func (r *petRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.pets[id]
	if !ok {
		return pets.Pet{}, notFound("pet", id)
	}
	return p, nil
}

func (r *petRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]pets.Pet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]pets.Pet, 0)
	for _, p := range r.s.pets {
		if p.OwnerUserID == ownerUserID {
			out = append(out, p)
		}
	}

	// Orden estable por created_at asc
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteCascade borra bajo el mismo lock todo lo que cuelga de la mascota.
func (r *petRepo) DeleteCascade(ctx context.Context, id string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.pets[id]
	if !ok {
		return nil, notFound("pet", id)
	}

	var files []string
	if p.ProfilePhoto != "" {
		files = append(files, p.ProfilePhoto)
	}
	for k, ph := range r.s.photos {
		if ph.PetID == id {
			files = append(files, ph.Filename)
			delete(r.s.photos, k)
		}
	}
	for k, e := range r.s.entries {
		if e.PetID == id {
			delete(r.s.entries, k)
		}
	}
	for k, e := range r.s.careEvents {
		if e.PetID == id {
			delete(r.s.careEvents, k)
		}
	}
	for k, g := range r.s.grants {
		if g.PetID == id {
			delete(r.s.grants, k)
		}
	}
	delete(r.s.pets, id)
	return files, nil
}
