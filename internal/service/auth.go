package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleex/storefront-api/internal/model"
	"github.com/fleex/storefront-api/internal/repository"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrSlugTaken          = errors.New("slug already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type AuthService struct {
	users     repository.UserStore
	jwtSecret []byte
	jwtExpiry time.Duration
}

func NewAuthService(users repository.UserStore, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{users: users, jwtSecret: []byte(jwtSecret), jwtExpiry: jwtExpiry}
}

type AuthResult struct {
	Token string
	User  *model.UserProfile
	Actor string
}

// Register bootstraps a tenant: profile with defaults, welcome bio and the
// initial activity-log entry.
func (s *AuthService) Register(ctx context.Context, name, slug, email, password string) (*AuthResult, error) {
	if existing, err := s.users.FindUserByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return nil, ErrUserAlreadyExists
	}
	if existing, err := s.users.FindUserBySlug(ctx, slug); err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	} else if existing != nil {
		return nil, ErrSlugTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := model.UserProfile{
		ID:           "user_" + uuid.NewString(),
		Email:        email,
		Password:     string(hashed),
		Name:         name,
		Slug:         slug,
		Bio:          fmt.Sprintf("Bem vindo à loja de %s", name),
		AvatarURL:    "https://picsum.photos/200",
		Plan:         model.PlanProfessional,
		ThemeID:      "minimal-light",
		PrimaryColor: "#0ea5e9",
		ActivityLogs: []model.ActivityLog{{
			ID:        uuid.NewString(),
			ActorName: "System",
			Action:    "Conta Criada",
			Timestamp: time.Now(),
		}},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.generateToken(&user, "Admin")
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{Token: token, User: &user, Actor: "Admin"}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user, "Admin")
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{Token: token, User: user, Actor: "Admin"}, nil
}

// LoginSubAccount signs a team member into the tenant identified by slug.
// The actor name travels in the token so dashboard actions land in the
// activity log under the right name.
func (s *AuthService) LoginSubAccount(ctx context.Context, slug, name, password string) (*AuthResult, error) {
	user, err := s.users.FindUserBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	for _, sub := range user.SubAccounts {
		if sub.Name != name {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(sub.Password), []byte(password)) != nil {
			continue
		}
		token, err := s.generateToken(user, sub.Name)
		if err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}
		return &AuthResult{Token: token, User: user, Actor: sub.Name}, nil
	}
	return nil, ErrInvalidCredentials
}

func (s *AuthService) generateToken(user *model.UserProfile, actor string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"slug":  user.Slug,
		"actor": actor,
		"exp":   time.Now().Add(s.jwtExpiry).Unix(),
		"iat":   time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}
