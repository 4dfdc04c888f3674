package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"counselbot.org/internal/auth"
)

const pgErrUniqueViolation = "23505"

var errNoDB = errors.New("database connection unavailable")

// Store implements the counselor-backed principal store on PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ auth.Provisioner = (*Store)(nil)

// Open connects through the pgx stdlib driver with pool limits sized for a
// small API tier.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL not set", auth.ErrConfiguration)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.Record, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	var rec auth.Record
	err := s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, is_admin
		from counselors
		where email = $1
	`, email).Scan(&rec.ID, &rec.Name, &rec.Email, &rec.SecretHash, &rec.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select counselor by email: %w", err)
	}
	return &rec, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (auth.Principal, error) {
	if s.db == nil {
		return auth.Principal{}, errNoDB
	}
	var p auth.Principal
	err := s.db.QueryRowContext(ctx, `
		select id, name, email, is_admin
		from counselors
		where id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Email, &p.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Principal{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Principal{}, fmt.Errorf("select counselor by id: %w", err)
	}
	return p, nil
}

func (s *Store) CreatePrincipal(ctx context.Context, reg auth.Registration) (auth.Principal, error) {
	if s.db == nil {
		return auth.Principal{}, errNoDB
	}
	p := auth.Principal{Name: reg.Name, Email: reg.Email, IsAdmin: reg.IsAdmin}
	err := s.db.QueryRowContext(ctx, `
		insert into counselors (name, email, password_hash, is_admin, phone, specialization, bio, office_location, office_hours)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning id
	`, reg.Name, reg.Email, reg.SecretHash, reg.IsAdmin,
		nullIfEmpty(reg.Profile.Phone), nullIfEmpty(reg.Profile.Specialization), nullIfEmpty(reg.Profile.Bio),
		nullIfEmpty(reg.Profile.OfficeLocation), nullIfEmpty(reg.Profile.OfficeHours),
	).Scan(&p.ID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.Principal{}, auth.ErrAlreadyExists
		}
		return auth.Principal{}, fmt.Errorf("insert counselor: %w", err)
	}
	return p, nil
}

// UpdatePassword replaces the stored bcrypt hash.
func (s *Store) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return s.execOne(ctx, `update counselors set password_hash = $2, updated_at = now() where id = $1`, id, hash)
}

// SetAdmin toggles the administrator flag; it applies to existing sessions on
// their next request.
func (s *Store) SetAdmin(ctx context.Context, id int64, admin bool) error {
	return s.execOne(ctx, `update counselors set is_admin = $2, updated_at = now() where id = $1`, id, admin)
}

// DeleteCounselor removes a counselor row.
func (s *Store) DeleteCounselor(ctx context.Context, id int64) error {
	return s.execOne(ctx, `delete from counselors where id = $1`, id)
}

func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func nullIfEmpty(v string) sql.NullString {
	v = strings.TrimSpace(v)
	return sql.NullString{String: v, Valid: v != ""}
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
