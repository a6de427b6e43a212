package sqlstore

import (
	"context"
	"time"

	"petpal/internal/domain/photos"
)

type photoRepo struct{ d *DB }

type photoRow struct {
	ID         string    `db:"id"`
	PetID      string    `db:"pet_id"`
	Filename   string    `db:"filename"`
	Title      string    `db:"title"`
	UploadedBy string    `db:"uploaded_by"`
	UploadedOn time.Time `db:"uploaded_on"`
	CreatedAt  time.Time `db:"created_at"`
}

const photoColumns = "id, pet_id, filename, title, uploaded_by, uploaded_on, created_at"

func (r photoRow) toDomain() photos.Photo {
	return photos.Photo{
		ID:         r.ID,
		PetID:      r.PetID,
		Filename:   r.Filename,
		Title:      r.Title,
		UploadedBy: r.UploadedBy,
		UploadedOn: dateOnly(r.UploadedOn),
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func (r *photoRepo) Create(ctx context.Context, p photos.Photo) error {
	_, err := r.d.x.ExecContext(ctx, r.d.q("INSERT INTO photos ("+photoColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)"),
		p.ID, p.PetID, p.Filename, p.Title, p.UploadedBy, dateOnly(p.UploadedOn), p.CreatedAt.UTC())
	return mapErr("create photo", err)
}

func (r *photoRepo) GetByID(ctx context.Context, id string) (photos.Photo, error) {
	var row photoRow
	if err := r.d.x.GetContext(ctx, &row, r.d.q("SELECT "+photoColumns+" FROM photos WHERE id = ?"), id); err != nil {
		return photos.Photo{}, mapErr("get photo", err)
	}
	return row.toDomain(), nil
}

func (r *photoRepo) ListByPet(ctx context.Context, petID string) ([]photos.Photo, error) {
	var rows []photoRow
	err := r.d.x.SelectContext(ctx, &rows, r.d.q("SELECT "+photoColumns+" FROM photos WHERE pet_id = ? ORDER BY created_at DESC"), petID)
	if err != nil {
		return nil, mapErr("list photos", err)
	}
	out := make([]photos.Photo, 0, len(rows))
	for _, p := range rows {
		out = append(out, p.toDomain())
	}
	return out, nil
}

func (r *photoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.d.x.ExecContext(ctx, r.d.q("DELETE FROM photos WHERE id = ?"), id)
	if err != nil {
		return mapErr("delete photo", err)
	}
	return requireRows("delete photo", res)
}
