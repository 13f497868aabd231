package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"forum-api/internal/domain"
	"forum-api/internal/repository"
)

const (
	// PasswordHashCost es el costo fijo de bcrypt (10 rondas).
	PasswordHashCost  = bcrypt.DefaultCost
	MinPasswordLength = 6
)

// UserService coordina reglas de negocio para usuarios.
type UserService struct {
	logger  *zap.Logger
	users   repository.UserRepository
	limiter LoginRateLimiter
	now     func() time.Time
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, limiter LoginRateLimiter) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		logger:  logger,
		users:   users,
		limiter: limiter,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

// Register crea una identidad nueva. El chequeo previo es orientativo; la
// restriccion unica del store es la que decide y se traduce a ErrConflict.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	name := strings.TrimSpace(input.Name)
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	password := strings.TrimSpace(input.Password)

	if password == "" {
		return domain.User{}, invalid("password is required")
	}
	if email == "" && username == "" {
		return domain.User{}, invalid("email or username is required")
	}
	if len(password) < MinPasswordLength {
		return domain.User{}, invalid(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	// El username derivado del email tambien es unico: a@y.com choca con un a@x.com previo.
	if username == "" {
		username = defaultUsername(email)
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return domain.User{}, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return domain.User{}, ErrConflict
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return domain.User{}, invalid("password is too long")
		}
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrConflict
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Authenticate verifica el secreto contra la identidad indicada por key.
// Cuenta inexistente y password incorrecto devuelven el mismo ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, key domain.LoginKey, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	password = strings.TrimSpace(password)
	if password == "" {
		return domain.User{}, invalid("password is required")
	}
	if key.Value == "" {
		return domain.User{}, invalid("email or username is required")
	}

	if s.limiter != nil && !s.limiter.Allow(key.String()) {
		return domain.User{}, ErrRateLimited
	}

	var (
		user domain.User
		err  error
	)
	switch key.Kind {
	case domain.LoginByEmail:
		user, err = s.users.GetByEmail(ctx, key.Value)
	case domain.LoginByUsername:
		user, err = s.users.GetByUsername(ctx, key.Value)
	default:
		return domain.User{}, invalid("email or username is required")
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Igualamos el costo con el de una comparacion real.
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			s.logger.Debug("login rejected", zap.String("reason", "unknown account"))
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if user.PasswordHash == "" {
		s.logger.Debug("login rejected", zap.String("reason", "no credential"), zap.String("user_id", user.ID))
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("login rejected", zap.String("reason", "password mismatch"), zap.String("user_id", user.ID))
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetByID lee la identidad autoritativa; los claims del token son solo una pista.
func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// defaultUsername toma la parte local del email.
func defaultUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

var (
	dummyHashOnce  sync.Once
	dummyHashBytes []byte
)

func dummyHash() []byte {
	dummyHashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), PasswordHashCost)
		if err == nil {
			dummyHashBytes = h
		}
	})
	return dummyHashBytes
}
