package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pkordes/placekeeper/internal/domain"
)

// sqlDB is the database/sql counterpart of db, satisfied by *sql.DB and *sql.Tx.
type sqlDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteUserRepo is the embedded SQLite implementation of UserRepo, used for
// single-node deployments and for tests that should not need Postgres.
type sqliteUserRepo struct {
	db  sqlDB
	now func() time.Time
}

// NewSQLiteUserRepo constructs a UserRepo backed by a modernc SQLite database.
func NewSQLiteUserRepo(db sqlDB) UserRepo {
	return &sqliteUserRepo{db: db, now: time.Now}
}

// SQLite stores timestamps as fixed-width RFC 3339 text in UTC so that
// ORDER BY on the text matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteUserColumns = `
	id, email, role, created_at, updated_at,
	onboarding_phase, onboarding_step, onboarding_started_at, onboarding_completed_at,
	locations_onboarding_completed, people_onboarding_completed, onboarding_version`

func (r *sqliteUserRepo) Create(ctx context.Context, email string, role domain.Role) (domain.User, error) {
	q := `
		INSERT INTO users (id, email, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING ` + sqliteUserColumns

	now := formatSQLiteTime(r.now())
	row := r.db.QueryRowContext(ctx, q, uuid.NewString(), email, string(role), now, now)
	u, err := scanSQLiteUser(row)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w: email %q already registered", domain.ErrValidation, email)
		}
		return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w", err)
	}
	return u, nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	q := `SELECT ` + sqliteUserColumns + ` FROM users WHERE id = ?`

	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx, q, id.String()))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByID: %w", err)
	}
	return u, nil
}

func (r *sqliteUserRepo) UpdateOnboarding(ctx context.Context, id uuid.UUID, o domain.Onboarding) (domain.Onboarding, error) {
	const q = `
		UPDATE users
		SET onboarding_phase               = ?,
		    onboarding_step                = ?,
		    onboarding_started_at          = ?,
		    onboarding_completed_at        = ?,
		    locations_onboarding_completed = ?,
		    people_onboarding_completed    = ?,
		    onboarding_version             = onboarding_version + 1,
		    updated_at                     = ?
		WHERE id = ? AND onboarding_version = ?`

	c := columnsFromOnboarding(o)
	res, err := r.db.ExecContext(ctx, q,
		c.phase,
		nullInt(c.step),
		nullTime(c.startedAt),
		nullTime(c.completedAt),
		c.locations,
		c.people,
		formatSQLiteTime(r.now()),
		id.String(),
		o.Version,
	)
	if err != nil {
		return domain.Onboarding{}, fmt.Errorf("repo.UserRepo.UpdateOnboarding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Onboarding{}, fmt.Errorf("repo.UserRepo.UpdateOnboarding: rows affected: %w", err)
	}
	if n == 1 {
		updated := o
		updated.Version = o.Version + 1
		return updated, nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`, id.String()).Scan(&exists); err != nil {
		return domain.Onboarding{}, fmt.Errorf("repo.UserRepo.UpdateOnboarding: exists: %w", err)
	}
	if !exists {
		return domain.Onboarding{}, fmt.Errorf("repo.UserRepo.UpdateOnboarding: %w", domain.ErrNotFound)
	}
	return domain.Onboarding{}, fmt.Errorf("repo.UserRepo.UpdateOnboarding: %w", domain.ErrConflict)
}

func (r *sqliteUserRepo) ListPaged(ctx context.Context, params domain.PaginationParams) ([]domain.User, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.UserRepo.ListPaged: count: %w", err)
	}

	q := `SELECT ` + sqliteUserColumns + `
		FROM users
		ORDER BY created_at, id
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, q, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("repo.UserRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.UserRepo.ListPaged: scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.UserRepo.ListPaged: rows: %w", err)
	}
	return users, total, nil
}

func scanSQLiteUser(s scanner) (domain.User, error) {
	var (
		u                    domain.User
		id, role             string
		createdAt, updatedAt string
		phase                string
		step                 sql.NullInt64
		startedAt            sql.NullString
		completedAt          sql.NullString
		c                    onboardingColumns
	)
	err := s.Scan(&id, &u.Email, &role, &createdAt, &updatedAt,
		&phase, &step, &startedAt, &completedAt, &c.locations, &c.people, &c.version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}

	if u.ID, err = uuid.Parse(id); err != nil {
		return domain.User{}, fmt.Errorf("parse id: %w", err)
	}
	u.Role = domain.Role(role)
	if u.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return domain.User{}, fmt.Errorf("parse created_at: %w", err)
	}
	if u.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return domain.User{}, fmt.Errorf("parse updated_at: %w", err)
	}

	c.phase = phase
	if step.Valid {
		v := int(step.Int64)
		c.step = &v
	}
	if c.startedAt, err = parseNullTime(startedAt); err != nil {
		return domain.User{}, fmt.Errorf("parse onboarding_started_at: %w", err)
	}
	if c.completedAt, err = parseNullTime(completedAt); err != nil {
		return domain.User{}, fmt.Errorf("parse onboarding_completed_at: %w", err)
	}

	if u.Onboarding, err = c.toOnboarding(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatSQLiteTime(*t), Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(sqliteTimeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
