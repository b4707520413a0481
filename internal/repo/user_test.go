package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/placekeeper/internal/domain"
	"github.com/pkordes/placekeeper/internal/repo"
	"github.com/pkordes/placekeeper/testutil"
)

// newPgRepo opens a transaction against the test database and returns a
// UserRepo backed by it. The transaction is rolled back when the test
// finishes, giving per-test isolation without cleanup SQL.
func newPgRepo(t *testing.T) repo.UserRepo {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return repo.NewUserRepo(tx)
}

// newSQLiteRepo returns a UserRepo over a private in-memory database.
func newSQLiteRepo(t *testing.T) repo.UserRepo {
	t.Helper()
	return testutil.NewSQLiteStore(t).Users
}

// Both implementations must behave identically, so every test below runs
// against each of them.
var repoFactories = map[string]func(t *testing.T) repo.UserRepo{
	"postgres": newPgRepo,
	"sqlite":   newSQLiteRepo,
}

func forEachRepo(t *testing.T, fn func(t *testing.T, r repo.UserRepo)) {
	for name, newRepo := range repoFactories {
		t.Run(name, func(t *testing.T) {
			fn(t, newRepo(t))
		})
	}
}

// Whole seconds survive both timestamptz and the SQLite text encoding.
var at = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func createUser(t *testing.T, r repo.UserRepo, email string) domain.User {
	t.Helper()
	u, err := r.Create(context.Background(), email, domain.RoleMember)
	require.NoError(t, err)
	return u
}

func transition(t *testing.T, r repo.UserRepo, id uuid.UUID, e domain.Event, now time.Time) domain.Onboarding {
	t.Helper()
	ctx := context.Background()

	u, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	next, err := u.Onboarding.Apply(e, now)
	require.NoError(t, err)
	got, err := r.UpdateOnboarding(ctx, id, next)
	require.NoError(t, err)
	return got
}

func TestUserRepo_Create(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r repo.UserRepo) {
		got, err := r.Create(context.Background(), "ada@example.com", domain.RoleAdmin)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, got.ID, "ID should be generated")
		assert.Equal(t, "ada@example.com", got.Email)
		assert.Equal(t, domain.RoleAdmin, got.Role)
		assert.Equal(t, domain.NewOnboarding(), got.Onboarding)
		assert.False(t, got.CreatedAt.IsZero())
		assert.False(t, got.UpdatedAt.IsZero())
	})
}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r repo.UserRepo) {
		createUser(t, r, "ada@example.com")

		_, err := r.Create(context.Background(), "ada@example.com", domain.RoleMember)

		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r repo.UserRepo) {
		_, err := r.GetByID(context.Background(), uuid.New())

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestUserRepo_UpdateOnboarding_RoundTrip(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r repo.UserRepo) {
		u := createUser(t, r, "ada@example.com")

		started := transition(t, r, u.ID, domain.StepEvent(3), at)
		assert.Equal(t, int64(1), started.Version)

		got, err := r.GetByID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseInProgress, got.Onboarding.Phase)
		assert.Equal(t, 3, got.Onboarding.Step)
		require.NotNil(t, got.Onboarding.StartedAt)
		assert.True(t, at.Equal(*got.Onboarding.StartedAt))
		assert.Nil(t, got.Onboarding.CompletedAt)
		assert.Equal(t, int64(1), got.Onboarding.Version)
	})
}

func TestUserRepo_UpdateOnboarding_CompleteThenReset(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r repo.UserRepo) {
		u := createUser(t, r, "ada@example.com")
		ctx := context.Background()

		transition(t, r, u.ID, domain.StepEvent(3), at)
		transition(t, r, u.ID, domain.CompleteEvent(), at.Add(time.Hour))

		done, err := r.GetByID(ctx, u.ID)
		require.NoError(t, err)
		step, ok := done.Onboarding.CurrentStep()
		require.True(t, ok)
		assert.Equal(t, domain.TotalSteps, step)
		assert.True(t, done.Onboarding.Completed())
		require.NotNil(t, done.Onboarding.CompletedAt)
		assert.True(t, at.Add(time.Hour).Equal(*done.Onboarding.CompletedAt))

		transition(t, r, u.ID, domain.ResetEvent(), at.Add(2*time.Hour))

		reset, err := r.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseNotStarted, reset.Onboarding.Phase)
		_, ok = reset.Onboarding.CurrentStep()
		assert.False(t, ok)
		assert.Nil(t, reset.Onboarding.StartedAt)
		assert.Nil(t, reset.Onboarding.CompletedAt)
		assert.Equal(t, int64(3), reset.Onboarding.Version)
	})
}

func TestUserRepo_UpdateOnboarding_SubTourFlags(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r repo.UserRepo) {
		u := createUser(t, r, "ada@example.com")

		transition(t, r, u.ID, domain.SubTourCompleteEvent(domain.SubTourPeople), at)

		got, err := r.GetByID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.True(t, got.Onboarding.PeopleCompleted)
		assert.False(t, got.Onboarding.LocationsCompleted)
		assert.Equal(t, domain.PhaseNotStarted, got.Onboarding.Phase)
	})
}

func TestUserRepo_UpdateOnboarding_StaleVersion(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r repo.UserRepo) {
		u := createUser(t, r, "ada@example.com")
		ctx := context.Background()

		// Two writers read version 0; the second one to write loses.
		first, err := u.Onboarding.Apply(domain.StartEvent(), at)
		require.NoError(t, err)
		second, err := u.Onboarding.Apply(domain.SkipEvent(), at)
		require.NoError(t, err)

		_, err = r.UpdateOnboarding(ctx, u.ID, first)
		require.NoError(t, err)

		_, err = r.UpdateOnboarding(ctx, u.ID, second)
		assert.ErrorIs(t, err, domain.ErrConflict)

		got, err := r.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseInProgress, got.Onboarding.Phase, "losing write must not land")
	})
}

func TestUserRepo_UpdateOnboarding_UnknownUser(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r repo.UserRepo) {
		next, err := domain.NewOnboarding().Apply(domain.StartEvent(), at)
		require.NoError(t, err)

		_, err = r.UpdateOnboarding(context.Background(), uuid.New(), next)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestUserRepo_ListPaged(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r repo.UserRepo) {
		ctx := context.Background()

		_, before, err := r.ListPaged(ctx, domain.NewPaginationParams(nil, nil))
		require.NoError(t, err)

		emails := []string{"a@example.com", "b@example.com", "c@example.com"}
		for _, e := range emails {
			createUser(t, r, e)
		}

		limit := 2
		page, total, err := r.ListPaged(ctx, domain.NewPaginationParams(nil, &limit))
		require.NoError(t, err)
		assert.Equal(t, before+3, total)
		assert.Len(t, page, 2)

		limitAll := domain.MaxPageLimit
		all, _, err := r.ListPaged(ctx, domain.NewPaginationParams(nil, &limitAll))
		require.NoError(t, err)
		var got []string
		for _, u := range all {
			got = append(got, u.Email)
		}
		assert.Subset(t, got, emails)
	})
}
