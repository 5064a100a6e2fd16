package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"checkround/pkg/kv"
	"checkround/pkg/store"
)

func newService(t *testing.T, backend kv.Backend) *Service {
	t.Helper()
	s, err := store.New(backend)
	require.NoError(t, err)
	verifier, err := NewBcryptVerifier(bcrypt.MinCost)
	require.NoError(t, err)
	svc, err := NewService(s, verifier, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func memoryBackend(t *testing.T) kv.Backend {
	t.Helper()
	backend, err := kv.Open(context.Background(), kv.Options{Kind: kv.KindSQLite, InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestSeedStoresHashesNotPasswords(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memoryBackend(t))

	seeded, err := svc.SeedIfEmpty(ctx)
	require.NoError(t, err)
	require.True(t, seeded)

	seeded, err = svc.SeedIfEmpty(ctx)
	require.NoError(t, err)
	require.False(t, seeded)

	users, err := store.Read[User](ctx, svc.store, UsersContainer)
	require.NoError(t, err)
	require.Len(t, users, 3)
	for _, u := range users {
		require.NotEqual(t, demoPassword, u.PasswordHash)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(demoPassword)))
	}

	profiles, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, []Profile{
		{ID: 1, FullName: "John Operator", Username: "operator1", Role: RoleOperator},
		{ID: 2, FullName: "Jane Supervisor", Username: "supervisor1", Role: RoleSupervisor},
		{ID: 3, FullName: "Mike Worker", Username: "operator2", Role: RoleOperator},
	}, profiles)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memoryBackend(t))
	_, err := svc.SeedIfEmpty(ctx)
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "wrong password", username: "operator1", password: "password124", wantErr: ErrInvalidCredentials},
		{name: "unknown user", username: "ghost", password: "password123", wantErr: ErrInvalidCredentials},
		{name: "case sensitive username", username: "Operator1", password: "password123", wantErr: ErrInvalidCredentials},
		{name: "ok", username: "supervisor1", password: "password123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Login(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, 2, session.UserID)
			require.Equal(t, RoleSupervisor, session.Role)
			_, err = uuid.Parse(session.ID)
			require.NoError(t, err)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend, err := kv.Open(ctx, kv.Options{Kind: kv.KindBadger, Dir: dir})
	require.NoError(t, err)
	svc := newService(t, backend)
	_, err = svc.SeedIfEmpty(ctx)
	require.NoError(t, err)

	_, err = svc.RequireSession(ctx)
	require.ErrorIs(t, err, ErrNotSignedIn)

	session, err := svc.Login(ctx, "operator2", "password123")
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	// a fresh process sees the same session
	backend, err = kv.Open(ctx, kv.Options{Kind: kv.KindBadger, Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	svc = newService(t, backend)

	current, ok, err := svc.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, session.ID, current.ID)
	require.Equal(t, "Mike Worker", current.FullName)

	require.NoError(t, svc.Logout(ctx))
	require.NoError(t, svc.Logout(ctx))

	_, ok, err = svc.Current(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDropStaleSession(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memoryBackend(t))
	_, err := svc.SeedIfEmpty(ctx)
	require.NoError(t, err)

	dropped, err := svc.DropStaleSession(ctx)
	require.NoError(t, err)
	require.False(t, dropped, "no session to drop")

	_, err = svc.Login(ctx, "operator2", demoPassword)
	require.NoError(t, err)
	dropped, err = svc.DropStaleSession(ctx)
	require.NoError(t, err)
	require.False(t, dropped)

	// same id, different account
	require.NoError(t, store.Write(ctx, svc.store, UsersContainer, []User{
		{ID: 3, FullName: "Someone Else", Username: "operator9", Role: RoleSupervisor},
	}))
	dropped, err = svc.DropStaleSession(ctx)
	require.NoError(t, err)
	require.True(t, dropped)

	_, ok, err := svc.Current(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRequireRole(t *testing.T) {
	operator := Session{Role: RoleOperator}
	supervisor := Session{Role: RoleSupervisor}

	require.NoError(t, RequireRole(supervisor, RoleSupervisor))
	require.NoError(t, RequireRole(operator, RoleOperator, RoleSupervisor))
	require.ErrorIs(t, RequireRole(operator, RoleSupervisor), ErrForbidden)
	require.ErrorIs(t, RequireRole(Session{}, RoleOperator), ErrForbidden)
}

func TestNewBcryptVerifierRejectsBadCost(t *testing.T) {
	_, err := NewBcryptVerifier(bcrypt.MaxCost + 1)
	require.Error(t, err)

	v, err := NewBcryptVerifier(0)
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, v.Cost)
}
