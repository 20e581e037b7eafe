package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"scholarhub.app/scholarhub/internal/config"
	"scholarhub.app/scholarhub/internal/middleware"
	"scholarhub.app/scholarhub/internal/model"
	"scholarhub.app/scholarhub/internal/modules/user/dto"
	"scholarhub.app/scholarhub/internal/modules/user/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	GuestSession(ctx context.Context) (*dto.GuestResponse, error)
}

type authService struct {
	repo        repository.UserRepository
	redisClient *redis.Client
	secret      string
	tokenTTL    time.Duration
	guestTTL    time.Duration
}

func NewAuthService(repo repository.UserRepository, redisClient *redis.Client, cfg *config.Config) AuthService {
	return &authService{
		repo:        repo,
		redisClient: redisClient,
		secret:      cfg.JWTSecret,
		tokenTTL:    cfg.JWTTTL,
		guestTTL:    cfg.GuestSessionTTL,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return nil, errors.New("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashed),
		Role:         model.RoleStudent,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.buildAuthResponse(user)
}

// GuestSession issues a time-boxed guest credential. Guests can browse and
// chat with the bot but are excluded from realtime notification delivery
// and protected actions.
func (s *authService) GuestSession(ctx context.Context) (*dto.GuestResponse, error) {
	guestID := uuid.New()
	expiresAt := time.Now().Add(s.guestTTL)

	claims := jwt.RegisteredClaims{
		Subject:   middleware.GuestSubjectPrefix + guestID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign guest token: %w", err)
	}

	// Track active guest sessions for the admin dashboard. The token itself
	// stays valid without this record; expiry is enforced by the JWT.
	if s.redisClient != nil {
		key := fmt.Sprintf("guest_session:%s", guestID.String())
		if err := s.redisClient.Set(ctx, key, "active", s.guestTTL).Err(); err != nil {
			return nil, fmt.Errorf("failed to record guest session: %w", err)
		}
	}

	return &dto.GuestResponse{
		GuestID:   guestID.String(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *authService) buildAuthResponse(user *model.User) (*dto.AuthResponse, error) {
	expiresAt := time.Now().Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User: dto.UserResponse{
			ID:        user.ID.String(),
			Username:  user.Username,
			Email:     user.Email,
			Role:      user.Role,
			AvatarURL: user.AvatarURL,
		},
	}, nil
}
