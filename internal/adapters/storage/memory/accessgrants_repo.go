package memory

import (
	"context"
	"sort"

	"petpal/internal/domain/accessgrants"
)

type grantRepo struct{ s *Store }

func (r *grantRepo) Create(ctx context.Context, g accessgrants.Grant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if g.ID == "" {
		return errIDRequired
	}
	if _, exists := r.s.grants[g.ID]; exists {
		return ErrConflict
	}
	g.Scopes = append([]accessgrants.Scope(nil), g.Scopes...)
	r.s.grants[g.ID] = g
	return nil
}

func (r *grantRepo) Update(ctx context.Context, g accessgrants.Grant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.grants[g.ID]; !exists {
		return notFound("grant", g.ID)
	}
	g.Scopes = append([]accessgrants.Scope(nil), g.Scopes...)
	r.s.grants[g.ID] = g
	return nil
}

func (r *grantRepo) GetByID(ctx context.Context, id string) (accessgrants.Grant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	g, ok := r.s.grants[id]
	if !ok {
		return accessgrants.Grant{}, notFound("grant", id)
	}
	return g, nil
}

func (r *grantRepo) ListByPet(ctx context.Context, petID string) ([]accessgrants.Grant, error) {
	return r.list(func(g accessgrants.Grant) bool { return g.PetID == petID }), nil
}

func (r *grantRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]accessgrants.Grant, error) {
	return r.list(func(g accessgrants.Grant) bool { return g.GranteeUserID == granteeUserID }), nil
}

// GetActiveGrant: con data sucia devuelve el activo más reciente por UpdatedAt,
// y en empate por CreatedAt.
func (r *grantRepo) GetActiveGrant(ctx context.Context, petID, granteeUserID string) (accessgrants.Grant, error) {
	active := r.list(func(g accessgrants.Grant) bool {
		return g.PetID == petID && g.GranteeUserID == granteeUserID && g.Status == accessgrants.StatusActive
	})
	if len(active) == 0 {
		return accessgrants.Grant{}, notFound("active grant", petID+"/"+granteeUserID)
	}
	return active[0], nil
}

// list ordena el más reciente primero.
func (r *grantRepo) list(keep func(accessgrants.Grant) bool) []accessgrants.Grant {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]accessgrants.Grant, 0)
	for _, g := range r.s.grants {
		if keep(g) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
