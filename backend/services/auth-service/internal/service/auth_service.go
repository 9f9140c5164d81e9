package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/auth-service/internal/models"
	"campusev/backend/services/auth-service/internal/password"
)

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")

// UserRepository defines storage contract used by the service.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	TouchLogin(ctx context.Context, id int64, at time.Time) error
}

// Tokenizer issues access tokens.
type Tokenizer interface {
	GenerateToken(userID int64, role string) (string, error)
}

// SignupInput is a self-service registration.
type SignupInput struct {
	SchoolID string
	Phone    string
	Name     string
	Password string
	Role     string
}

// AuthService contains registration/login logic.
type AuthService struct {
	repo      UserRepository
	hasher    password.Hasher
	tokenizer Tokenizer
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService builds AuthService.
func NewAuthService(repo UserRepository, hasher password.Hasher, tokenizer Tokenizer, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:      repo,
		hasher:    hasher,
		tokenizer: tokenizer,
		logger:    logger,
		now:       time.Now,
	}
}

// Signup registers a new user identified by school id or phone.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	input.SchoolID = strings.TrimSpace(input.SchoolID)
	input.Phone = strings.TrimSpace(input.Phone)
	if input.SchoolID == "" && input.Phone == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "school_id or phone is required")
	}
	if input.Phone != "" && !validPhone(input.Phone) {
		return nil, apperrors.New(apperrors.CodeValidation, "phone must be 11 digits")
	}
	role := strings.ToLower(strings.TrimSpace(input.Role))
	if role == "" {
		role = models.RoleStudent
	}
	if role == models.RoleAdmin {
		return nil, apperrors.New(apperrors.CodeForbidden, "admin accounts cannot be self-registered")
	}
	if !models.SelfServiceRole(role) {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown role %q", role)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		SchoolID:     input.SchoolID,
		Phone:        input.Phone,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

// Login authenticates by school id or phone and produces a JWT.
func (s *AuthService) Login(ctx context.Context, identifier, pass string) (string, *models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || pass == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, pass); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, apperrors.New(apperrors.CodeForbidden, "account is disabled")
	}

	token, err := s.tokenizer.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.CodeInternal, err, "issue token")
	}
	if err := s.repo.TouchLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("failed to record login", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	return token, user, nil
}

func validPhone(phone string) bool {
	if len(phone) != 11 {
		return false
	}
	for _, c := range phone {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
