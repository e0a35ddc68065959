package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"kash_budget/internal/domain"
	"kash_budget/internal/logger"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxNameLength     = 100
	MaxEmailLength    = 255
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type RegisterInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	AccessToken string         `json:"accessToken"`
	User        domain.Profile `json:"user"`
}

type AuthService struct {
	users   UserStore
	hasher  PasswordHasher
	tokens  *TokenService
	audit   *AuditService
	timeout time.Duration
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens *TokenService, audit *AuditService, timeout time.Duration) *AuthService {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		audit:   audit,
		timeout: timeout,
		now:     time.Now,
	}
}

// Register creates an account and signs a token for it. A taken email
// fails with domain.ErrAlreadyExists.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res *AuthResult, err error) {
	defer func() { AuthAttempts.WithLabelValues("register", resultLabel(err)).Inc() }()

	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.storeFailure(ctx, "hash_password", "", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    trimmedOrNil(in.FirstName),
		LastName:     trimmedOrNil(in.LastName),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.users.Create(storeCtx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			logger.WithContext(ctx).Warn("registration attempted with existing email", "email", in.Email)
			return nil, domain.ErrAlreadyExists
		}
		return nil, s.storeFailure(ctx, "register", "", err)
	}

	logger.WithContext(ctx).Info("new user registered", "email", user.Email, "user_id", user.ID)
	s.audit.LogRegister(ctx, user.ID)

	return s.issue(ctx, user)
}

// Login verifies credentials. Unknown emails, wrong passwords and inactive
// accounts all fail with the same domain.ErrUnauthorized, and an unknown
// email still pays for one hash comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (res *AuthResult, err error) {
	defer func() { AuthAttempts.WithLabelValues("login", resultLabel(err)).Inc() }()

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetByEmail(storeCtx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, s.storeFailure(ctx, "login", "", err)
	}

	if user == nil {
		s.hasher.Compare(s.dummy(), password)
		logger.WithContext(ctx).Warn("login attempted with non-existent email", "email", email)
		s.audit.LogLoginFailed(ctx, "", email)
		return nil, domain.ErrUnauthorized
	}

	if !s.hasher.Compare(user.PasswordHash, password) || !user.IsActive {
		logger.WithContext(ctx).Warn("failed login attempt", "email", email, "user_id", user.ID)
		s.audit.LogLoginFailed(ctx, user.ID, email)
		return nil, domain.ErrUnauthorized
	}

	logger.WithContext(ctx).Info("user logged in", "email", email, "user_id", user.ID)
	s.audit.LogLogin(ctx, user.ID)

	return s.issue(ctx, user)
}

// Authenticate verifies a bearer token and returns the owner id. The
// subject must still exist and be active.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return "", err
	}

	user, err := s.Profile(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: user not found", domain.ErrUnauthorized)
		}
		return "", err
	}
	if !user.IsActive {
		return "", fmt.Errorf("%w: user inactive", domain.ErrUnauthorized)
	}
	return user.ID, nil
}

// Profile loads the user behind an authenticated id.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	if !validID(userID) {
		return nil, domain.ErrNotFound
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetByID(storeCtx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, s.storeFailure(ctx, "profile", userID, err)
	}
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, s.storeFailure(ctx, "sign_token", user.ID, err)
	}
	return &AuthResult{AccessToken: token, User: user.Profile()}, nil
}

// dummy returns a hash of a random-looking password at the configured cost.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("kash-budget-timing-equalizer")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func (s *AuthService) storeFailure(ctx context.Context, op, userID string, cause error) error {
	logger.WithContext(ctx).Error("auth failure", "op", op, "user_id", userID, "error", cause)
	return fmt.Errorf("%w: %s", domain.ErrStore, op)
}

func validateRegistration(in RegisterInput) error {
	if in.Email == "" || len(in.Email) > MaxEmailLength || !emailPattern.MatchString(in.Email) {
		return domain.Invalid("email", "email must be a valid email address")
	}
	n := utf8.RuneCountInString(in.Password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return domain.Invalid("password", "password must be between 8 and 128 characters")
	}
	if len(in.Password) > MaxPasswordBytes {
		return domain.Invalid("password", "password must not exceed 72 bytes")
	}
	for field, v := range map[string]*string{"firstName": in.FirstName, "lastName": in.LastName} {
		if v != nil && utf8.RuneCountInString(*v) > MaxNameLength {
			return domain.Invalid(field, field+" must not exceed 100 characters")
		}
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
