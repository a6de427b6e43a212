package sqlstore

import (
	"context"
	"time"

	"petpal/internal/domain/journal"
)

type entryRepo struct{ d *DB }

type entryRow struct {
	ID        string    `db:"id"`
	PetID     string    `db:"pet_id"`
	Title     string    `db:"title"`
	Date      time.Time `db:"entry_date"`
	Content   string    `db:"content"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const entryColumns = "id, pet_id, title, entry_date, content, created_by, created_at, updated_at"

func (r entryRow) toDomain() journal.Entry {
	return journal.Entry{
		ID:        r.ID,
		PetID:     r.PetID,
		Title:     r.Title,
		Date:      dateOnly(r.Date),
		Content:   r.Content,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (r *entryRepo) Create(ctx context.Context, e journal.Entry) error {
	_, err := r.d.x.ExecContext(ctx, r.d.q("INSERT INTO journal_entries ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"),
		e.ID, e.PetID, e.Title, dateOnly(e.Date), e.Content, e.CreatedBy, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	return mapErr("create entry", err)
}

func (r *entryRepo) Update(ctx context.Context, e journal.Entry) error {
	res, err := r.d.x.ExecContext(ctx, r.d.q("UPDATE journal_entries SET title = ?, entry_date = ?, content = ?, updated_at = ? WHERE id = ?"),
		e.Title, dateOnly(e.Date), e.Content, e.UpdatedAt.UTC(), e.ID)
	if err != nil {
		return mapErr("update entry", err)
	}
	return requireRows("update entry", res)
}

func (r *entryRepo) GetByID(ctx context.Context, id string) (journal.Entry, error) {
	var row entryRow
	if err := r.d.x.GetContext(ctx, &row, r.d.q("SELECT "+entryColumns+" FROM journal_entries WHERE id = ?"), id); err != nil {
		return journal.Entry{}, mapErr("get entry", err)
	}
	return row.toDomain(), nil
}

func (r *entryRepo) ListByPet(ctx context.Context, petID string) ([]journal.Entry, error) {
	var rows []entryRow
	err := r.d.x.SelectContext(ctx, &rows,
		r.d.q("SELECT "+entryColumns+" FROM journal_entries WHERE pet_id = ? ORDER BY entry_date DESC, created_at DESC"), petID)
	if err != nil {
		return nil, mapErr("list entries", err)
	}
	out := make([]journal.Entry, 0, len(rows))
	for _, e := range rows {
		out = append(out, e.toDomain())
	}
	return out, nil
}

func (r *entryRepo) Delete(ctx context.Context, id string) error {
	res, err := r.d.x.ExecContext(ctx, r.d.q("DELETE FROM journal_entries WHERE id = ?"), id)
	if err != nil {
		return mapErr("delete entry", err)
	}
	return requireRows("delete entry", res)
}
