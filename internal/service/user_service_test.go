package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"forum-api/internal/domain"
	"forum-api/internal/repository"
)

type mockUserRepo struct {
	mu              sync.Mutex
	usersByID       map[string]domain.User
	usersByEmail    map[string]string
	usersByUsername map[string]string
	skipExistsCheck bool
	createCalls     int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:       make(map[string]domain.User),
		usersByEmail:    make(map[string]string),
		usersByUsername: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if _, ok := m.usersByEmail[user.Email]; ok && user.Email != "" {
		return repository.ErrDuplicate
	}
	if _, ok := m.usersByUsername[user.Username]; ok && user.Username != "" {
		return repository.ErrDuplicate
	}
	m.usersByID[user.ID] = user
	if user.Email != "" {
		m.usersByEmail[user.Email] = user.ID
	}
	if user.Username != "" {
		m.usersByUsername[user.Username] = user.ID
	}
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByUsername[username]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	if m.skipExistsCheck {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usersByEmail[email]; ok && email != "" {
		return true, nil
	}
	if _, ok := m.usersByUsername[username]; ok && username != "" {
		return true, nil
	}
	return false, nil
}

type denyAllLimiter struct{ keys []string }

func (d *denyAllLimiter) Allow(key string) bool {
	d.keys = append(d.keys, key)
	return false
}

func newTestUserService(repo *mockUserRepo) *UserService {
	return NewUserService(zap.NewNop(), repo, nil)
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepo()
	svc := newTestUserService(repo)

	user, err := svc.Register(ctx, RegisterInput{Name: "Ann", Username: "ann", Email: "a@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || user.Username != "ann" || user.Email != "a@x.com" || user.Name != "Ann" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "" || strings.Contains(user.PasswordHash, "secret1") {
		t.Fatalf("expected a bcrypt hash, got %q", user.PasswordHash)
	}
	if !strings.HasPrefix(user.PasswordHash, "$2a$10$") {
		t.Fatalf("expected bcrypt cost 10, got %q", user.PasswordHash[:7])
	}

	byEmail, err := svc.Authenticate(ctx, domain.ByEmail("  A@X.COM "), "secret1")
	if err != nil {
		t.Fatalf("authenticate by email: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("expected same identity, got %s vs %s", byEmail.ID, user.ID)
	}

	byUsername, err := svc.Authenticate(ctx, domain.ByUsername(" ann "), "secret1")
	if err != nil {
		t.Fatalf("authenticate by username: %v", err)
	}
	if byUsername.ID != user.ID {
		t.Fatalf("expected same identity by username")
	}

	if _, err := svc.Authenticate(ctx, domain.ByUsername("Ann"), "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected usernames to be case-sensitive, got %v", err)
	}
}

func TestUserService_AuthenticateFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(newMockUserRepo())
	if _, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, wrongPassword := svc.Authenticate(ctx, domain.ByEmail("a@x.com"), "wrong")
	_, unknown := svc.Authenticate(ctx, domain.ByEmail("nobody@x.com"), "secret1")

	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v and %v", wrongPassword, unknown)
	}
	if wrongPassword.Error() != unknown.Error() {
		t.Fatalf("expected identical messages, got %q and %q", wrongPassword, unknown)
	}
}

func TestUserService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		input   RegisterInput
		message string
	}{
		{"missing password", RegisterInput{Email: "a@x.com"}, "password is required"},
		{"blank password", RegisterInput{Email: "a@x.com", Password: "   "}, "password is required"},
		{"missing login key", RegisterInput{Name: "Ann", Password: "secret1"}, "email or username is required"},
		{"short password", RegisterInput{Email: "a@x.com", Password: "abc"}, "password must be at least 6 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestUserService(newMockUserRepo())
			_, err := svc.Register(ctx, tc.input)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := ValidationMessage(err); got != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, got)
			}
		})
	}
}

func TestUserService_RegisterConflicts(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepo()
	svc := newTestUserService(repo)
	if _, err := svc.Register(ctx, RegisterInput{Username: "ann", Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	t.Run("same email different case", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{Email: " A@X.com ", Password: "secret1"})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("same username", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{Username: "ann", Email: "b@x.com", Password: "secret1"})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("username differing in case is distinct", func(t *testing.T) {
		if _, err := svc.Register(ctx, RegisterInput{Username: "Ann", Password: "secret1"}); err != nil {
			t.Fatalf("expected distinct identity, got %v", err)
		}
	})

	t.Run("store constraint wins over the pre-check", func(t *testing.T) {
		repo.skipExistsCheck = true
		defer func() { repo.skipExistsCheck = false }()
		_, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict from store, got %v", err)
		}
	})
}

func TestUserService_RegisterDefaultsUsernameToEmailLocalPart(t *testing.T) {
	svc := newTestUserService(newMockUserRepo())
	user, err := svc.Register(context.Background(), RegisterInput{Email: "Bob.Smith@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "bob.smith" {
		t.Fatalf("expected username bob.smith, got %q", user.Username)
	}
	if user.Email != "bob.smith@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
}

func TestUserService_DerivedUsernameCollision(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepo()
	svc := newTestUserService(repo)
	if _, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Register(ctx, RegisterInput{Email: "a@y.com", Password: "secret1"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected derived username to conflict, got %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "a@y.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected no identity stored for a@y.com, got %v", err)
	}
	if repo.createCalls != 1 {
		t.Fatalf("expected the pre-check to stop the second create, got %d creates", repo.createCalls)
	}

	user, err := svc.Register(ctx, RegisterInput{Username: "a2", Email: "a@y.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("expected explicit username to succeed, got %v", err)
	}
	if user.Username != "a2" {
		t.Fatalf("unexpected username %q", user.Username)
	}
}

func TestUserService_ConcurrentRegisterSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepo()
	repo.skipExistsCheck = true
	svc := newTestUserService(repo)

	const n = 4
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, RegisterInput{Email: "race@x.com", Password: "secret1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", n-1, ok, conflicts)
	}
}

func TestUserService_AuthenticateRateLimited(t *testing.T) {
	repo := newMockUserRepo()
	limiter := &denyAllLimiter{}
	svc := NewUserService(zap.NewNop(), repo, limiter)

	_, err := svc.Authenticate(context.Background(), domain.ByEmail("A@x.com"), "secret1")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "email:a@x.com" {
		t.Fatalf("unexpected limiter keys: %+v", limiter.keys)
	}
}

func TestUserService_AuthenticateValidation(t *testing.T) {
	svc := newTestUserService(newMockUserRepo())
	if _, err := svc.Authenticate(context.Background(), domain.ByEmail("a@x.com"), "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for blank password, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), domain.ByUsername(""), "secret1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty key, got %v", err)
	}
}

func TestUserService_GetByID(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(newMockUserRepo())
	user, err := svc.Register(ctx, RegisterInput{Username: "ann", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := svc.GetByID(ctx, user.ID)
	if err != nil || got.ID != user.ID {
		t.Fatalf("expected user, got %+v err=%v", got, err)
	}
	if _, err := svc.GetByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
