package auth

import (
	"context"
	"strings"
	"time"

	"docquery/internal/domain/entity"
	"docquery/internal/domain/repository"
	"docquery/pkg/apperr"
	"docquery/pkg/jwt"
	"docquery/pkg/password"
)

type AuthUsecase struct {
	userRepo  repository.UserRepository
	jwtSecret string
	jwtExpiry time.Duration
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	jwtSecret string,
	jwtExpiry time.Duration,
) *AuthUsecase {
	return &AuthUsecase{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

// register user
func (uc *AuthUsecase) Register(
	ctx context.Context,
	email, pass, name string,
) (*entity.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || pass == "" || name == "" {
		return nil, apperr.Validation("all fields are required")
	}

	// Check if email already exists
	existing, err := uc.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("email already registered")
	}

	// Hash password
	hashedPassword, err := password.HashPassword(pass)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Email:    email,
		Password: hashedPassword,
		Name:     name,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// login user
func (uc *AuthUsecase) Login(
	ctx context.Context,
	email, pass string,
) (string, *entity.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || pass == "" {
		return "", nil, apperr.Validation("email and password are required")
	}

	user, err := uc.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, apperr.Forbidden("invalid credentials")
	}

	// Verify password
	if err := password.ComparePassword(user.Password, pass); err != nil {
		return "", nil, apperr.Forbidden("invalid credentials")
	}

	// Generate JWT token
	token, err := jwt.GenerateToken(user.ID, user.Email, uc.jwtSecret, uc.jwtExpiry)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// current user
func (uc *AuthUsecase) Me(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}
