package sqlstore

import (
	"context"

	"petpal/internal/domain/species"
)

type speciesRepo struct{ d *DB }

type speciesRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

type breedRow struct {
	ID        string `db:"id"`
	SpeciesID string `db:"species_id"`
	Name      string `db:"name"`
}

func (r *speciesRepo) ListSpecies(ctx context.Context) ([]species.Species, error) {
	var rows []speciesRow
	if err := r.d.x.SelectContext(ctx, &rows, "SELECT id, name FROM species ORDER BY name"); err != nil {
		return nil, mapErr("list species", err)
	}
	out := make([]species.Species, 0, len(rows))
	for _, s := range rows {
		out = append(out, species.Species{ID: s.ID, Name: s.Name})
	}
	return out, nil
}

func (r *speciesRepo) GetSpecies(ctx context.Context, id string) (species.Species, error) {
	var row speciesRow
	if err := r.d.x.GetContext(ctx, &row, r.d.q("SELECT id, name FROM species WHERE id = ?"), id); err != nil {
		return species.Species{}, mapErr("get species", err)
	}
	return species.Species{ID: row.ID, Name: row.Name}, nil
}

func (r *speciesRepo) ListBreeds(ctx context.Context, speciesID string) ([]species.Breed, error) {
	var rows []breedRow
	err := r.d.x.SelectContext(ctx, &rows, r.d.q("SELECT id, species_id, name FROM breeds WHERE species_id = ? ORDER BY name"), speciesID)
	if err != nil {
		return nil, mapErr("list breeds", err)
	}
	out := make([]species.Breed, 0, len(rows))
	for _, b := range rows {
		out = append(out, species.Breed{ID: b.ID, SpeciesID: b.SpeciesID, Name: b.Name})
	}
	return out, nil
}

func (r *speciesRepo) GetBreed(ctx context.Context, id string) (species.Breed, error) {
	var row breedRow
	if err := r.d.x.GetContext(ctx, &row, r.d.q("SELECT id, species_id, name FROM breeds WHERE id = ?"), id); err != nil {
		return species.Breed{}, mapErr("get breed", err)
	}
	return species.Breed{ID: row.ID, SpeciesID: row.SpeciesID, Name: row.Name}, nil
}
