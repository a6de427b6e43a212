package sqlstore

import (
	"context"
	"errors"
	"time"

	"petpal/internal/domain/users"
	"petpal/internal/platform/apperr"
)

type userRepo struct{ d *DB }

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toDomain() users.User {
	return users.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

const userColumns = "id, username, email, password_hash, created_at, updated_at"

func (r *userRepo) Create(ctx context.Context, u users.User) error {
	_, err := r.d.x.ExecContext(ctx, r.d.q(`
		INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	if err := mapErr("create user", err); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return users.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	return r.get(ctx, "id", id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	return r.get(ctx, "email", email)
}

func (r *userRepo) get(ctx context.Context, col, v string) (users.User, error) {
	var row userRow
	err := r.d.x.GetContext(ctx, &row, r.d.q("SELECT "+userColumns+" FROM users WHERE "+col+" = ?"), v)
	if err != nil {
		return users.User{}, mapErr("get user", err)
	}
	return row.toDomain(), nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	res, err := r.d.x.ExecContext(ctx, r.d.q("UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?"), hash, at.UTC(), id)
	if err != nil {
		return mapErr("update password", err)
	}
	return requireRows("update password", res)
}
