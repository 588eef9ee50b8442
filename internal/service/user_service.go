package service

import (
	"context"
	"fmt"
	"time"

	"fixtrack/backend/internal/middleware"
	"fixtrack/backend/internal/model"
	"fixtrack/backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
	Branch   string `json:"branch"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserService interface {
	Register(ctx context.Context, actor Actor, req CreateUserRequest) (*model.User, error)
	Login(ctx context.Context, username, password string) (*model.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*model.User, *TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, page, limit int) ([]model.User, int64, error)
	ListTechnicians(ctx context.Context) ([]model.User, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type userService struct {
	userRepo  repository.UserRepository
	txManager repository.TransactionManager
}

func NewUserService(userRepo repository.UserRepository, txManager repository.TransactionManager) UserService {
	return &userService{userRepo: userRepo, txManager: txManager}
}

// Register creates an employee account. Only admins manage accounts; roles
// come from the fixed shop set.
func (s *userService) Register(ctx context.Context, actor Actor, req CreateUserRequest) (*model.User, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	if !model.ValidRole(req.Role) {
		return nil, fmt.Errorf("unknown role %q", req.Role)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	branch := req.Branch
	if branch == "" {
		branch = model.DefaultBranch
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     req.Role,
		Branch:   branch,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *userService) Login(ctx context.Context, username, password string) (*model.User, *TokenPair, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, fmt.Errorf("invalid credentials")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates the refresh token: the presented token is deleted and a new
// pair is issued, so a stolen token only works once.
func (s *userService) Refresh(ctx context.Context, refreshToken string) (*model.User, *TokenPair, error) {
	stored, err := s.userRepo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid refresh token")
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.userRepo.DeleteRefreshToken(ctx, refreshToken)
		return nil, nil, fmt.Errorf("refresh token expired")
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("user not found: %w", err)
	}

	var pair *TokenPair
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.DeleteRefreshToken(txCtx, refreshToken); err != nil {
			return err
		}
		pair, err = s.issueTokens(txCtx, user)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.userRepo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id.String())
}

func (s *userService) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	return s.userRepo.List(ctx, page, limit)
}

func (s *userService) ListTechnicians(ctx context.Context) ([]model.User, error) {
	return s.userRepo.ListByRole(ctx, model.RoleTechnician)
}

func (s *userService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if actor.Role != model.RoleAdmin {
		return ErrForbidden
	}
	if actor.ID == id {
		return fmt.Errorf("cannot delete own account")
	}
	return s.userRepo.Delete(ctx, id.String())
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenPair, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"name": user.Username,
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenTTL).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(middleware.GetJWTSecret())
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := uuid.NewString()
	if err := s.userRepo.CreateRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: now.Add(refreshTokenTTL),
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
