package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleex/storefront-api/internal/model"
)

func TestAuthService_Register(t *testing.T) {
	users := newMockUserStore()
	svc := NewAuthService(users, "test-secret", time.Hour)

	result, err := svc.Register(context.Background(), "Loja Teste", "lojateste", "dono@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "Admin", result.Actor)

	user := result.User
	assert.Equal(t, "lojateste", user.Slug)
	assert.Equal(t, model.PlanProfessional, user.Plan)
	assert.Equal(t, "Bem vindo à loja de Loja Teste", user.Bio)
	assert.Equal(t, "minimal-light", user.ThemeID)
	require.Len(t, user.ActivityLogs, 1)
	assert.Equal(t, "Conta Criada", user.ActivityLogs[0].Action)
	assert.Equal(t, "System", user.ActivityLogs[0].ActorName)

	assert.NotEqual(t, "password123", user.Password, "password is stored hashed")
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	users := newMockUserStore()
	svc := NewAuthService(users, "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), "A", "slua", "dono@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "B", "slub", "dono@example.com", "password123")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthService_Register_SlugTaken(t *testing.T) {
	users := newMockUserStore()
	svc := NewAuthService(users, "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), "A", "minhaloja", "a@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "B", "minhaloja", "b@example.com", "password123")
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestAuthService_Login(t *testing.T) {
	users := newMockUserStore()
	svc := NewAuthService(users, "test-secret", time.Hour)

	registered, err := svc.Register(context.Background(), "Loja", "loja", "dono@example.com", "password123")
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), "dono@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, result.User.ID)

	// The token carries the tenant and the acting user.
	token, err := jwt.Parse(result.Token, func(*jwt.Token) (any, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, registered.User.ID, claims["sub"])
	assert.Equal(t, "loja", claims["slug"])
	assert.Equal(t, "Admin", claims["actor"])
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	users := newMockUserStore()
	svc := NewAuthService(users, "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), "Loja", "loja", "dono@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "dono@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "ninguem@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LoginSubAccount(t *testing.T) {
	users := newMockUserStore()
	svc := NewAuthService(users, "test-secret", time.Hour)

	hashed, err := bcrypt.GenerateFromPassword([]byte("equipe123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, users.CreateUser(context.Background(), model.UserProfile{
		ID:   "t1",
		Slug: "loja",
		Plan: model.PlanProfessional,
		SubAccounts: []model.SubAccount{
			{ID: "sa1", Name: "Carlos", Password: string(hashed), Role: "editor"},
		},
	}))

	result, err := svc.LoginSubAccount(context.Background(), "loja", "Carlos", "equipe123")
	require.NoError(t, err)
	assert.Equal(t, "Carlos", result.Actor)
	assert.Equal(t, "t1", result.User.ID, "sub-account sessions act on the owner tenant")

	_, err = svc.LoginSubAccount(context.Background(), "loja", "Carlos", "errada")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.LoginSubAccount(context.Background(), "loja", "Pedro", "equipe123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
