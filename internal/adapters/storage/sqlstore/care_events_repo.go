package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"petpal/internal/domain/trackers"
)

type careEventRepo struct{ d *DB }

type careEventRow struct {
	ID         string       `db:"id"`
	PetID      string       `db:"pet_id"`
	Type       string       `db:"type"`
	Date       time.Time    `db:"event_date"`
	NextDue    sql.NullTime `db:"next_due"`
	Notes      string       `db:"notes"`
	Details    string       `db:"details"`
	Status     string       `db:"status"`
	RecordedBy string       `db:"recorded_by"`
	RecordedAt time.Time    `db:"recorded_at"`
	VoidedAt   sql.NullTime `db:"voided_at"`
}

const careEventColumns = "id, pet_id, type, event_date, next_due, notes, details, status, recorded_by, recorded_at, voided_at"

func (r careEventRow) toDomain() trackers.CareEvent {
	return trackers.CareEvent{
		ID:         r.ID,
		PetID:      r.PetID,
		Type:       trackers.Type(r.Type),
		Date:       dateOnly(r.Date),
		NextDue:    datePtr(r.NextDue),
		Notes:      r.Notes,
		Details:    []byte(r.Details),
		Status:     trackers.Status(r.Status),
		RecordedBy: r.RecordedBy,
		RecordedAt: r.RecordedAt.UTC(),
		VoidedAt:   timePtr(r.VoidedAt),
	}
}

func (r *careEventRepo) Create(ctx context.Context, e trackers.CareEvent) error {
	details := string(e.Details)
	if details == "" {
		details = "{}"
	}
	var next *time.Time
	if e.NextDue != nil {
		d := dateOnly(*e.NextDue)
		next = &d
	}
	_, err := r.d.x.ExecContext(ctx, r.d.q("INSERT INTO care_events ("+careEventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		e.ID, e.PetID, string(e.Type), dateOnly(e.Date), nullTime(next), e.Notes, details,
		string(e.Status), e.RecordedBy, e.RecordedAt.UTC(), nullTime(e.VoidedAt))
	return mapErr("create care event", err)
}

func (r *careEventRepo) GetByID(ctx context.Context, id string) (trackers.CareEvent, error) {
	var row careEventRow
	if err := r.d.x.GetContext(ctx, &row, r.d.q("SELECT "+careEventColumns+" FROM care_events WHERE id = ?"), id); err != nil {
		return trackers.CareEvent{}, mapErr("get care event", err)
	}
	return row.toDomain(), nil
}

func (r *careEventRepo) ListByPet(ctx context.Context, petID string, f trackers.ListFilter) ([]trackers.CareEvent, error) {
	where := []string{"pet_id = ?"}
	args := []any{petID}

	if !f.IncludeVoided {
		where = append(where, "status = ?")
		args = append(args, string(trackers.StatusActive))
	}
	if len(f.Types) > 0 {
		marks := make([]string, len(f.Types))
		for i, t := range f.Types {
			marks[i] = "?"
			args = append(args, string(t))
		}
		where = append(where, "type IN ("+strings.Join(marks, ", ")+")")
	}
	if f.From != nil {
		where = append(where, "event_date >= ?")
		args = append(args, dateOnly(*f.From))
	}
	if f.To != nil {
		where = append(where, "event_date <= ?")
		args = append(args, dateOnly(*f.To))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(notes) LIKE ? OR LOWER(details) LIKE ?)")
		args = append(args, like, like)
	}

	query := "SELECT " + careEventColumns + " FROM care_events WHERE " + strings.Join(where, " AND ") +
		" ORDER BY event_date DESC, recorded_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var rows []careEventRow
	if err := r.d.x.SelectContext(ctx, &rows, r.d.q(query), args...); err != nil {
		return nil, mapErr("list care events", err)
	}
	out := make([]trackers.CareEvent, 0, len(rows))
	for _, e := range rows {
		out = append(out, e.toDomain())
	}
	return out, nil
}

func (r *careEventRepo) Void(ctx context.Context, id string, at time.Time) error {
	res, err := r.d.x.ExecContext(ctx, r.d.q("UPDATE care_events SET status = ?, voided_at = ? WHERE id = ?"),
		string(trackers.StatusVoided), at.UTC(), id)
	if err != nil {
		return mapErr("void care event", err)
	}
	return requireRows("void care event", res)
}
