// Package auth signs users in against the users container and keeps the
// device's current session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"checkround/pkg/store"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid username or password")
	ErrForbidden          = errors.New("auth: role not permitted")
	ErrNotSignedIn        = errors.New("auth: not signed in")
)

const demoPassword = "password123"

var demoUsers = []User{
	{ID: 1, FullName: "John Operator", Username: "operator1", Role: RoleOperator},
	{ID: 2, FullName: "Jane Supervisor", Username: "supervisor1", Role: RoleSupervisor},
	{ID: 3, FullName: "Mike Worker", Username: "operator2", Role: RoleOperator},
}

type Service struct {
	store    *store.Store
	verifier Verifier
	now      func() time.Time
	logger   zerolog.Logger
	mu       sync.Mutex
}

func NewService(s *store.Store, verifier Verifier, logger zerolog.Logger) (*Service, error) {
	if s == nil {
		return nil, errors.New("auth: store is required")
	}
	if verifier == nil {
		return nil, errors.New("auth: verifier is required")
	}
	return &Service{store: s, verifier: verifier, now: time.Now, logger: logger}, nil
}

// SeedIfEmpty writes the demo accounts when the users container is empty.
func (s *Service) SeedIfEmpty(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := store.Read[User](ctx, s.store, UsersContainer)
	if err != nil {
		return false, fmt.Errorf("read users: %w", err)
	}
	if len(users) > 0 {
		return false, nil
	}

	now := s.now()
	for _, u := range demoUsers {
		hash, err := s.verifier.Hash(demoPassword)
		if err != nil {
			return false, err
		}
		u.PasswordHash = hash
		u.CreatedAt = now
		users = append(users, u)
	}
	if err := store.Write(ctx, s.store, UsersContainer, users); err != nil {
		return false, fmt.Errorf("seed users: %w", err)
	}
	s.logger.Info().Int("users", len(users)).Msg("seeded demo users")
	return true, nil
}

// Login checks the credentials and makes the user the device's current session.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	users, err := store.Read[User](ctx, s.store, UsersContainer)
	if err != nil {
		return Session{}, fmt.Errorf("read users: %w", err)
	}

	username = strings.TrimSpace(username)
	idx := slices.IndexFunc(users, func(u User) bool { return u.Username == username })
	if idx < 0 {
		s.logger.Warn().Str("username", username).Msg("login rejected")
		return Session{}, ErrInvalidCredentials
	}
	user := users[idx]
	if err := s.verifier.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn().Str("username", username).Msg("login rejected")
		}
		return Session{}, err
	}

	session := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		Role:      user.Role,
		CreatedAt: s.now(),
	}
	if err := s.store.Save(ctx, SessionContainer, session); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	s.logger.Info().Str("username", user.Username).Str("session_id", session.ID).Msg("signed in")
	return session, nil
}

func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Remove(ctx, SessionContainer); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Current returns the signed-in session, if any.
func (s *Service) Current(ctx context.Context) (Session, bool, error) {
	var session Session
	found, err := s.store.Load(ctx, SessionContainer, &session)
	if err != nil {
		return Session{}, false, fmt.Errorf("read session: %w", err)
	}
	return session, found, nil
}

// RequireSession is Current with ErrNotSignedIn for the empty case.
func (s *Service) RequireSession(ctx context.Context) (Session, error) {
	session, ok, err := s.Current(ctx)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrNotSignedIn
	}
	return session, nil
}

// DropStaleSession signs out when the current session no longer matches a
// stored user by id and username, as after the users container is replaced.
func (s *Service) DropStaleSession(ctx context.Context) (bool, error) {
	session, ok, err := s.Current(ctx)
	if err != nil || !ok {
		return false, err
	}
	users, err := store.Read[User](ctx, s.store, UsersContainer)
	if err != nil {
		return false, fmt.Errorf("read users: %w", err)
	}
	if slices.ContainsFunc(users, func(u User) bool {
		return u.ID == session.UserID && u.Username == session.Username
	}) {
		return false, nil
	}
	if err := s.Logout(ctx); err != nil {
		return false, err
	}
	s.logger.Info().Str("username", session.Username).Msg("dropped session of unknown user")
	return true, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]Profile, error) {
	users, err := store.Read[User](ctx, s.store, UsersContainer)
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	profiles := make([]Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// RequireRole returns ErrForbidden unless the session holds one of roles.
func RequireRole(session Session, roles ...Role) error {
	if slices.Contains(roles, session.Role) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrForbidden, session.Role)
}
