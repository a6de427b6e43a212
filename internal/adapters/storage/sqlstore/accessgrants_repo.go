package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"petpal/internal/domain/accessgrants"
)

type grantRepo struct{ d *DB }

// scopes se guarda como CSV para que el esquema sea el mismo en los tres motores.
type grantRow struct {
	ID            string       `db:"id"`
	PetID         string       `db:"pet_id"`
	OwnerUserID   string       `db:"owner_user_id"`
	GranteeUserID string       `db:"grantee_user_id"`
	Scopes        string       `db:"scopes"`
	Status        string       `db:"status"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
	RevokedAt     sql.NullTime `db:"revoked_at"`
}

const grantColumns = "id, pet_id, owner_user_id, grantee_user_id, scopes, status, created_at, updated_at, revoked_at"

func (r grantRow) toDomain() accessgrants.Grant {
	return accessgrants.Grant{
		ID:            r.ID,
		PetID:         r.PetID,
		OwnerUserID:   r.OwnerUserID,
		GranteeUserID: r.GranteeUserID,
		Scopes:        splitScopes(r.Scopes),
		Status:        accessgrants.Status(r.Status),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
		RevokedAt:     timePtr(r.RevokedAt),
	}
}

func (r *grantRepo) Create(ctx context.Context, g accessgrants.Grant) error {
	_, err := r.d.x.ExecContext(ctx, r.d.q("INSERT INTO access_grants ("+grantColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		g.ID, g.PetID, g.OwnerUserID, g.GranteeUserID, joinScopes(g.Scopes), string(g.Status),
		g.CreatedAt.UTC(), g.UpdatedAt.UTC(), nullTime(g.RevokedAt))
	return mapErr("create grant", err)
}

func (r *grantRepo) Update(ctx context.Context, g accessgrants.Grant) error {
	res, err := r.d.x.ExecContext(ctx, r.d.q("UPDATE access_grants SET scopes = ?, status = ?, updated_at = ?, revoked_at = ? WHERE id = ?"),
		joinScopes(g.Scopes), string(g.Status), g.UpdatedAt.UTC(), nullTime(g.RevokedAt), g.ID)
	if err != nil {
		return mapErr("update grant", err)
	}
	return requireRows("update grant", res)
}

func (r *grantRepo) GetByID(ctx context.Context, id string) (accessgrants.Grant, error) {
	var row grantRow
	if err := r.d.x.GetContext(ctx, &row, r.d.q("SELECT "+grantColumns+" FROM access_grants WHERE id = ?"), id); err != nil {
		return accessgrants.Grant{}, mapErr("get grant", err)
	}
	return row.toDomain(), nil
}

func (r *grantRepo) ListByPet(ctx context.Context, petID string) ([]accessgrants.Grant, error) {
	return r.list(ctx, "pet_id = ?", petID)
}

func (r *grantRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]accessgrants.Grant, error) {
	return r.list(ctx, "grantee_user_id = ?", granteeUserID)
}

// GetActiveGrant: con data sucia gana el activo más reciente.
func (r *grantRepo) GetActiveGrant(ctx context.Context, petID, granteeUserID string) (accessgrants.Grant, error) {
	var row grantRow
	err := r.d.x.GetContext(ctx, &row, r.d.q(`
		SELECT `+grantColumns+` FROM access_grants
		WHERE pet_id = ? AND grantee_user_id = ? AND status = ?
		ORDER BY updated_at DESC, created_at DESC
		LIMIT 1`), petID, granteeUserID, string(accessgrants.StatusActive))
	if err != nil {
		return accessgrants.Grant{}, mapErr("get active grant", err)
	}
	return row.toDomain(), nil
}

func (r *grantRepo) list(ctx context.Context, where string, arg any) ([]accessgrants.Grant, error) {
	var rows []grantRow
	err := r.d.x.SelectContext(ctx, &rows,
		r.d.q("SELECT "+grantColumns+" FROM access_grants WHERE "+where+" ORDER BY updated_at DESC, created_at DESC"), arg)
	if err != nil {
		return nil, mapErr("list grants", err)
	}
	out := make([]accessgrants.Grant, 0, len(rows))
	for _, g := range rows {
		out = append(out, g.toDomain())
	}
	return out, nil
}

func joinScopes(in []accessgrants.Scope) string {
	parts := make([]string, 0, len(in))
	for _, s := range in {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ",")
}

func splitScopes(s string) []accessgrants.Scope {
	out := make([]accessgrants.Scope, 0)
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, accessgrants.Scope(p))
		}
	}
	return out
}
