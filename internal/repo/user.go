// Package repo contains all database access logic for the Placekeeper onboarding
// service. UserRepo is the persistence boundary; it has a Postgres and an
// SQLite implementation. No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/placekeeper/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepo defines the persistence operations on user records.
// The service layer depends on this interface, not on a concrete database.
type UserRepo interface {
	// Create inserts a user in the not-started onboarding state.
	// Returns domain.ErrValidation if the email is already registered.
	Create(ctx context.Context, email string, role domain.Role) (domain.User, error)

	// GetByID retrieves a user and its onboarding state.
	// Returns domain.ErrNotFound if no user with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// UpdateOnboarding writes o as the user's onboarding state if the stored
	// version still equals o.Version, and returns the state with its new version.
	// Returns domain.ErrNotFound for an unknown user and domain.ErrConflict
	// when another write got there first.
	UpdateOnboarding(ctx context.Context, id uuid.UUID, o domain.Onboarding) (domain.Onboarding, error)

	// ListPaged returns one page of users ordered by creation time together
	// with the total number of users.
	ListPaged(ctx context.Context, params domain.PaginationParams) ([]domain.User, int64, error)
}

// pgUserRepo is the Postgres implementation of UserRepo.
type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided Postgres connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

const pgUserColumns = `
	id, email, role, created_at, updated_at,
	onboarding_phase, onboarding_step, onboarding_started_at, onboarding_completed_at,
	locations_onboarding_completed, people_onboarding_completed, onboarding_version`

const pgOnboardingColumns = `
	onboarding_phase, onboarding_step, onboarding_started_at, onboarding_completed_at,
	locations_onboarding_completed, people_onboarding_completed, onboarding_version`

// pgUniqueViolation is the SQLSTATE Postgres reports for a duplicate key.
const pgUniqueViolation = "23505"

// Create inserts a new user row and returns the full persisted record.
func (r *pgUserRepo) Create(ctx context.Context, email string, role domain.Role) (domain.User, error) {
	q := `
		INSERT INTO users (email, role)
		VALUES (@email, @role)
		RETURNING ` + pgUserColumns

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email, "role": string(role)})
	u, err := scanPgUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w: email %q already registered", domain.ErrValidation, email)
		}
		return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by primary key.
func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	q := `SELECT ` + pgUserColumns + ` FROM users WHERE id = @id`

	u, err := scanPgUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByID: %w", err)
	}
	return u, nil
}

// UpdateOnboarding compare-and-swaps the onboarding columns on onboarding_version.
func (r *pgUserRepo) UpdateOnboarding(ctx context.Context, id uuid.UUID, o domain.Onboarding) (domain.Onboarding, error) {
	q := `
		UPDATE users
		SET onboarding_phase               = @phase,
		    onboarding_step                = @step,
		    onboarding_started_at          = @started_at,
		    onboarding_completed_at        = @completed_at,
		    locations_onboarding_completed = @locations,
		    people_onboarding_completed    = @people,
		    onboarding_version             = onboarding_version + 1,
		    updated_at                     = now()
		WHERE id = @id AND onboarding_version = @version
		RETURNING ` + pgOnboardingColumns

	c := columnsFromOnboarding(o)
	args := pgx.NamedArgs{
		"id":           id,
		"version":      o.Version,
		"phase":        c.phase,
		"step":         c.step, // nil becomes NULL
		"started_at":   c.startedAt,
		"completed_at": c.completedAt,
		"locations":    c.locations,
		"people":       c.people,
	}

	got, err := scanPgOnboarding(r.db.QueryRow(ctx, q, args))
	if err == nil {
		return got, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Onboarding{}, fmt.Errorf("repo.UserRepo.UpdateOnboarding: %w", err)
	}

	// No row matched: either the user is gone or the version moved on.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = @id)`, pgx.NamedArgs{"id": id}).Scan(&exists); err != nil {
		return domain.Onboarding{}, fmt.Errorf("repo.UserRepo.UpdateOnboarding: exists: %w", err)
	}
	if !exists {
		return domain.Onboarding{}, fmt.Errorf("repo.UserRepo.UpdateOnboarding: %w", domain.ErrNotFound)
	}
	return domain.Onboarding{}, fmt.Errorf("repo.UserRepo.UpdateOnboarding: %w", domain.ErrConflict)
}

// ListPaged returns users ordered by created_at, then id for a stable order.
func (r *pgUserRepo) ListPaged(ctx context.Context, params domain.PaginationParams) ([]domain.User, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.UserRepo.ListPaged: count: %w", err)
	}

	q := `SELECT ` + pgUserColumns + `
		FROM users
		ORDER BY created_at, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": params.Limit, "offset": params.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.UserRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanPgUser(rows)
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

// scanner is satisfied by both pgx.Row and pgx.Rows (and by *sql.Row and
// *sql.Rows), so the scan helpers work for single rows and result sets.
type scanner interface {
	Scan(dest ...any) error
}

// scanPgUser maps a row selected with pgUserColumns into a domain.User.
func scanPgUser(s scanner) (domain.User, error) {
	var (
		u    domain.User
		id   pgtype.UUID
		role string
		oc   pgOnboardingScan
	)
	dest := append([]any{&id, &u.Email, &role, &u.CreatedAt, &u.UpdatedAt}, oc.dest()...)
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}

	u.ID = uuid.UUID(id.Bytes)
	u.Role = domain.Role(role)
	o, err := oc.columns().toOnboarding()
	if err != nil {
		return domain.User{}, err
	}
	u.Onboarding = o
	return u, nil
}

// scanPgOnboarding maps a row selected with pgOnboardingColumns.
func scanPgOnboarding(s scanner) (domain.Onboarding, error) {
	var oc pgOnboardingScan
	if err := s.Scan(oc.dest()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Onboarding{}, domain.ErrNotFound
		}
		return domain.Onboarding{}, err
	}
	return oc.columns().toOnboarding()
}

// pgOnboardingScan holds the pgtype destinations for the nullable columns.
type pgOnboardingScan struct {
	phase       string
	step        pgtype.Int4
	startedAt   pgtype.Timestamptz
	completedAt pgtype.Timestamptz
	locations   bool
	people      bool
	version     int64
}

func (s *pgOnboardingScan) dest() []any {
	return []any{&s.phase, &s.step, &s.startedAt, &s.completedAt, &s.locations, &s.people, &s.version}
}

func (s *pgOnboardingScan) columns() onboardingColumns {
	c := onboardingColumns{
		phase:     s.phase,
		locations: s.locations,
		people:    s.people,
		version:   s.version,
	}
	if s.step.Valid {
		step := int(s.step.Int32)
		c.step = &step
	}
	if s.startedAt.Valid {
		t := s.startedAt.Time.UTC()
		c.startedAt = &t
	}
	if s.completedAt.Valid {
		t := s.completedAt.Time.UTC()
		c.completedAt = &t
	}
	return c
}
