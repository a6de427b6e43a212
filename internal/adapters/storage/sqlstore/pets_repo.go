package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"petpal/internal/domain/pets"

	"github.com/jmoiron/sqlx"
)

type petRepo struct{ d *DB }

type petRow struct {
	ID               string         `db:"id"`
	OwnerUserID      string         `db:"owner_user_id"`
	Name             string         `db:"name"`
	SpeciesID        string         `db:"species_id"`
	BreedID          sql.NullString `db:"breed_id"`
	Sex              string         `db:"sex"`
	BirthDate        sql.NullTime   `db:"birth_date"`
	AdoptionDate     sql.NullTime   `db:"adoption_date"`
	Sterilized       bool           `db:"sterilized"`
	MicrochipNumber  sql.NullString `db:"microchip_number"`
	InsuranceCompany string         `db:"insurance_company"`
	InsuranceNumber  string         `db:"insurance_number"`
	ProfilePhoto     string         `db:"profile_photo"`
	Notes            string         `db:"notes"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r petRow) toDomain() pets.Pet {
	return pets.Pet{
		ID:               r.ID,
		OwnerUserID:      r.OwnerUserID,
		Name:             r.Name,
		SpeciesID:        r.SpeciesID,
		BreedID:          r.BreedID.String,
		Sex:              pets.Sex(r.Sex),
		BirthDate:        datePtr(r.BirthDate),
		AdoptionDate:     datePtr(r.AdoptionDate),
		Sterilized:       r.Sterilized,
		MicrochipNumber:  r.MicrochipNumber.String,
		InsuranceCompany: r.InsuranceCompany,
		InsuranceNumber:  r.InsuranceNumber,
		ProfilePhoto:     r.ProfilePhoto,
		Notes:            r.Notes,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

const petColumns = `id, owner_user_id, name, species_id, breed_id, sex,
	birth_date, adoption_date, sterilized, microchip_number,
	insurance_company, insurance_number, profile_photo, notes,
	created_at, updated_at`

func (r *petRepo) Create(ctx context.Context, p pets.Pet) error {
	_, err := r.d.x.ExecContext(ctx, r.d.q(`
		INSERT INTO pets (`+petColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.OwnerUserID, p.Name, p.SpeciesID, nullString(p.BreedID), string(p.Sex),
		nullTime(p.BirthDate), nullTime(p.AdoptionDate), p.Sterilized, nullString(p.MicrochipNumber),
		p.InsuranceCompany, p.InsuranceNumber, p.ProfilePhoto, p.Notes,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	return mapErr("create pet", err)
}

func (r *petRepo) Update(ctx context.Context, p pets.Pet) error {
	res, err := r.d.x.ExecContext(ctx, r.d.q(`
		UPDATE pets SET
			name = ?, species_id = ?, breed_id = ?, sex = ?,
			birth_date = ?, adoption_date = ?, sterilized = ?, microchip_number = ?,
			insurance_company = ?, insurance_number = ?, profile_photo = ?, notes = ?,
			updated_at = ?
		WHERE id = ?`),
		p.Name, p.SpeciesID, nullString(p.BreedID), string(p.Sex),
		nullTime(p.BirthDate), nullTime(p.AdoptionDate), p.Sterilized, nullString(p.MicrochipNumber),
		p.InsuranceCompany, p.InsuranceNumber, p.ProfilePhoto, p.Notes,
		p.UpdatedAt.UTC(), p.ID,
	)
	if err != nil {
		return mapErr("update pet", err)
	}
	return requireRows("update pet", res)
}

func (r *petRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	var row petRow
	if err := r.d.x.GetContext(ctx, &row, r.d.q("SELECT "+petColumns+" FROM pets WHERE id = ?"), id); err != nil {
		return pets.Pet{}, mapErr("get pet", err)
	}
	return row.toDomain(), nil
}

func (r *petRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]pets.Pet, error) {
	var rows []petRow
	err := r.d.x.SelectContext(ctx, &rows, r.d.q("SELECT "+petColumns+" FROM pets WHERE owner_user_id = ? ORDER BY created_at ASC"), ownerUserID)
	if err != nil {
		return nil, mapErr("list pets", err)
	}
	out := make([]pets.Pet, 0, len(rows))
	for _, p := range rows {
		out = append(out, p.toDomain())
	}
	return out, nil
}

// DeleteCascade borra dependientes y la mascota en una transacción.
// Devuelve foto de perfil y fotos de galería para borrar después del commit.
func (r *petRepo) DeleteCascade(ctx context.Context, id string) ([]string, error) {
	var files []string
	err := withTx(ctx, r.d.x, func(tx *sqlx.Tx) error {
		var profile string
		if err := tx.GetContext(ctx, &profile, tx.Rebind("SELECT profile_photo FROM pets WHERE id = ?"), id); err != nil {
			return mapErr("delete pet", err)
		}
		var gallery []string
		if err := tx.SelectContext(ctx, &gallery, tx.Rebind("SELECT filename FROM photos WHERE pet_id = ?"), id); err != nil {
			return mapErr("delete pet: photos", err)
		}

		for _, t := range []string{"care_events", "journal_entries", "photos", "access_grants"} {
			if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+t+" WHERE pet_id = ?"), id); err != nil {
				return mapErr("delete pet: "+t, err)
			}
		}
		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM pets WHERE id = ?"), id)
		if err != nil {
			return mapErr("delete pet", err)
		}
		if err := requireRows("delete pet", res); err != nil {
			return err
		}

		if profile != "" {
			files = append(files, profile)
		}
		files = append(files, gallery...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
