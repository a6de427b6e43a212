package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"petpal/internal/domain/species"

	"github.com/jmoiron/sqlx"
)

// Los FK no llevan ON DELETE CASCADE: el borrado en cascada lo hace
// petRepo.DeleteCascade dentro de una transacción.

type table struct {
	name    string
	columns []string
	indexes [][2]string // {nombre, columnas}
}

// types por dialecto: {ts, text, bool}
func (d *DB) types() (ts, text, boolean string) {
	switch d.dialect {
	case Postgres:
		return "TIMESTAMPTZ", "TEXT", "BOOLEAN"
	case MySQL:
		return "DATETIME(6)", "TEXT", "BOOLEAN"
	default:
		return "TIMESTAMP", "TEXT", "BOOLEAN"
	}
}

func (d *DB) tables() []table {
	ts, text, boolean := d.types()
	id := "VARCHAR(64)"
	return []table{
		{name: "users", columns: []string{
			"id " + id + " PRIMARY KEY",
			"username VARCHAR(120) NOT NULL",
			"email VARCHAR(255) NOT NULL UNIQUE",
			"password_hash VARCHAR(255) NOT NULL",
			"created_at " + ts + " NOT NULL",
			"updated_at " + ts + " NOT NULL",
		}},
		{name: "species", columns: []string{
			"id " + id + " PRIMARY KEY",
			"name VARCHAR(120) NOT NULL UNIQUE",
		}},
		{name: "breeds", columns: []string{
			"id " + id + " PRIMARY KEY",
			"species_id " + id + " NOT NULL",
			"name VARCHAR(120) NOT NULL",
			"UNIQUE (id, species_id)",
			"FOREIGN KEY (species_id) REFERENCES species(id)",
		}, indexes: [][2]string{{"idx_breeds_species", "species_id"}}},
		{name: "pets", columns: []string{
			"id " + id + " PRIMARY KEY",
			"owner_user_id " + id + " NOT NULL",
			"name VARCHAR(120) NOT NULL",
			"species_id " + id + " NOT NULL",
			"breed_id " + id + " NULL",
			"sex VARCHAR(1) NOT NULL",
			"birth_date DATE NULL",
			"adoption_date DATE NULL",
			"sterilized " + boolean + " NOT NULL DEFAULT FALSE",
			"microchip_number VARCHAR(64) NULL UNIQUE",
			"insurance_company VARCHAR(120) NOT NULL DEFAULT ''",
			"insurance_number VARCHAR(120) NOT NULL DEFAULT ''",
			"profile_photo VARCHAR(255) NOT NULL DEFAULT ''",
			"notes " + text + " NOT NULL",
			"created_at " + ts + " NOT NULL",
			"updated_at " + ts + " NOT NULL",
			"FOREIGN KEY (owner_user_id) REFERENCES users(id)",
			"FOREIGN KEY (species_id) REFERENCES species(id)",
			// la raza, si viene, es de la misma especie
			"FOREIGN KEY (breed_id, species_id) REFERENCES breeds(id, species_id)",
		}, indexes: [][2]string{{"idx_pets_owner", "owner_user_id"}}},
		{name: "photos", columns: []string{
			"id " + id + " PRIMARY KEY",
			"pet_id " + id + " NOT NULL",
			"filename VARCHAR(255) NOT NULL",
			"title VARCHAR(255) NOT NULL DEFAULT ''",
			"uploaded_by " + id + " NOT NULL",
			"uploaded_on DATE NOT NULL",
			"created_at " + ts + " NOT NULL",
			"FOREIGN KEY (pet_id) REFERENCES pets(id)",
		}, indexes: [][2]string{{"idx_photos_pet", "pet_id, created_at"}}},
		{name: "journal_entries", columns: []string{
			"id " + id + " PRIMARY KEY",
			"pet_id " + id + " NOT NULL",
			"title VARCHAR(255) NOT NULL",
			"entry_date DATE NOT NULL",
			"content " + text + " NOT NULL",
			"created_by " + id + " NOT NULL",
			"created_at " + ts + " NOT NULL",
			"updated_at " + ts + " NOT NULL",
			"FOREIGN KEY (pet_id) REFERENCES pets(id)",
		}, indexes: [][2]string{{"idx_journal_pet_date", "pet_id, entry_date"}}},
		{name: "care_events", columns: []string{
			"id " + id + " PRIMARY KEY",
			"pet_id " + id + " NOT NULL",
			"type VARCHAR(40) NOT NULL",
			"event_date DATE NOT NULL",
			"next_due DATE NULL",
			"notes " + text + " NOT NULL",
			"details " + text + " NOT NULL",
			"status VARCHAR(20) NOT NULL",
			"recorded_by " + id + " NOT NULL",
			"recorded_at " + ts + " NOT NULL",
			"voided_at " + ts + " NULL",
			"FOREIGN KEY (pet_id) REFERENCES pets(id)",
		}, indexes: [][2]string{{"idx_care_events_pet_type_date", "pet_id, type, event_date"}}},
		{name: "access_grants", columns: []string{
			"id " + id + " PRIMARY KEY",
			"pet_id " + id + " NOT NULL",
			"owner_user_id " + id + " NOT NULL",
			"grantee_user_id " + id + " NOT NULL",
			"scopes VARCHAR(255) NOT NULL",
			"status VARCHAR(20) NOT NULL",
			"created_at " + ts + " NOT NULL",
			"updated_at " + ts + " NOT NULL",
			"revoked_at " + ts + " NULL",
			"FOREIGN KEY (pet_id) REFERENCES pets(id)",
		}, indexes: [][2]string{
			{"idx_grants_pet", "pet_id"},
			{"idx_grants_grantee", "grantee_user_id, status"},
		}},
	}
}

// statements arma el DDL. MySQL no tiene CREATE INDEX IF NOT EXISTS,
// así que ahí los índices van dentro del CREATE TABLE.
func (d *DB) statements() []string {
	var out []string
	for _, t := range d.tables() {
		cols := append([]string(nil), t.columns...)
		if d.dialect == MySQL {
			for _, ix := range t.indexes {
				cols = append(cols, fmt.Sprintf("INDEX %s (%s)", ix[0], ix[1]))
			}
		}
		suffix := ""
		if d.dialect == MySQL {
			suffix = " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
		}
		out = append(out, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)%s", t.name, strings.Join(cols, ",\n\t"), suffix))
		if d.dialect != MySQL {
			for _, ix := range t.indexes {
				out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", ix[0], t.name, ix[1]))
			}
		}
	}
	return out
}

// Migrate crea el esquema si falta y siembra el catálogo de especies.
// Se puede correr varias veces.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range d.statements() {
		if _, err := d.x.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: migrate: %w\n%s", err, stmt)
		}
	}
	return d.seedSpecies(ctx)
}

func (d *DB) seedSpecies(ctx context.Context) error {
	sp, br := species.Catalog()
	return withTx(ctx, d.x, func(tx *sqlx.Tx) error {
		for _, s := range sp {
			if err := insertMissing(ctx, tx, "species", s.ID,
				"INSERT INTO species (id, name) VALUES (?, ?)", s.ID, s.Name); err != nil {
				return err
			}
		}
		for _, b := range br {
			if err := insertMissing(ctx, tx, "breeds", b.ID,
				"INSERT INTO breeds (id, species_id, name) VALUES (?, ?, ?)", b.ID, b.SpeciesID, b.Name); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertMissing(ctx context.Context, tx *sqlx.Tx, tableName, id, insert string, args ...any) error {
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM "+tableName+" WHERE id = ?"), id); err != nil {
		return mapErr("seed "+tableName, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(insert), args...); err != nil {
		return mapErr("seed "+tableName, err)
	}
	return nil
}
