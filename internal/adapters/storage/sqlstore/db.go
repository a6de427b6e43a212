// Package sqlstore implementa los repositorios sobre Postgres, MySQL o SQLite.
// Las consultas se escriben con ? y se adaptan con Rebind.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"petpal/internal/domain/accessgrants"
	"petpal/internal/domain/journal"
	"petpal/internal/domain/pets"
	"petpal/internal/domain/photos"
	"petpal/internal/domain/species"
	"petpal/internal/domain/trackers"
	"petpal/internal/domain/users"
	"petpal/internal/platform/apperr"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type DB struct {
	x       *sqlx.DB
	dialect Dialect
}

// Open abre el pool para driver (postgres | mysql | sqlite) y hace ping.
func Open(driver, dsn string) (*DB, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(driver)))
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlstore: dsn required")
	}

	var (
		name string
		err  error
	)
	switch d {
	case Postgres:
		name = "pgx"
	case MySQL:
		name = "mysql"
		dsn, err = mysqlDSN(dsn)
		if err != nil {
			return nil, err
		}
	case SQLite:
		name = "sqlite"
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	x, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", d, err)
	}

	if d == SQLite {
		// una sola conexión: SQLite serializa escrituras y ":memory:" es por conexión
		x.SetMaxOpenConns(1)
	} else {
		x.SetMaxOpenConns(10)
		x.SetMaxIdleConns(5)
		x.SetConnMaxIdleTime(5 * time.Minute)
		x.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := x.PingContext(ctx); err != nil {
		_ = x.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", d, err)
	}
	return &DB{x: x, dialect: d}, nil
}

// mysqlDSN fuerza parseTime=true y loc=UTC.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("sqlstore: mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// sqliteDSN acepta una ruta o un DSN file:... y agrega foreign_keys.
func sqliteDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func (d *DB) Close() error {
	if d == nil || d.x == nil {
		return nil
	}
	return d.x.Close()
}

func (d *DB) Dialect() Dialect { return d.dialect }

func (d *DB) PingContext(ctx context.Context) error { return d.x.PingContext(ctx) }

func (d *DB) Users() users.Repository               { return &userRepo{d} }
func (d *DB) Species() species.Repository           { return &speciesRepo{d} }
func (d *DB) Pets() pets.Repository                 { return &petRepo{d} }
func (d *DB) Photos() photos.Repository             { return &photoRepo{d} }
func (d *DB) Journal() journal.Repository           { return &entryRepo{d} }
func (d *DB) CareEvents() trackers.Repository       { return &careEventRepo{d} }
func (d *DB) AccessGrants() accessgrants.Repository { return &grantRepo{d} }

func (d *DB) q(query string) string { return d.x.Rebind(query) }

func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// mapErr traduce errores de driver a los sentinels de apperr.
func mapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("sqlstore: %s: %w", op, apperr.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("sqlstore: %s: %w (%v)", op, apperr.ErrConflict, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("sqlstore: %s: %w (%v)", op, apperr.ErrNotFound, err)
	default:
		return fmt.Errorf("sqlstore: %s: %w", op, err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1452
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// requireRows: UPDATE/DELETE sin filas => not found.
func requireRows(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("sqlstore: %s: %w", op, apperr.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// dateOnly normaliza DATE a medianoche UTC (los drivers difieren en la zona).
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func datePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := dateOnly(t.Time)
	return &v
}
