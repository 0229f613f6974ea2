package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleex/storefront-api/internal/dto"
	"github.com/fleex/storefront-api/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.auth.Register(c.Request.Context(), req.Name, req.Slug, req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, service.ErrSlugTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "slug already taken"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	default:
		c.JSON(http.StatusCreated, dto.AuthResponse{
			Token: result.Token,
			Actor: result.Actor,
			User:  dto.ToUserResponse(result.User),
		})
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	default:
		c.JSON(http.StatusOK, dto.AuthResponse{
			Token: result.Token,
			Actor: result.Actor,
			User:  dto.ToUserResponse(result.User),
		})
	}
}

// LoginSubAccount authenticates a team member against the owner's store slug.
// The issued token carries the owner's tenant with the member as actor.
func (h *AuthHandler) LoginSubAccount(c *gin.Context) {
	var req dto.SubAccountLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.auth.LoginSubAccount(c.Request.Context(), req.Slug, req.Name, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	default:
		c.JSON(http.StatusOK, dto.AuthResponse{
			Token: result.Token,
			Actor: result.Actor,
			User:  dto.ToUserResponse(result.User),
		})
	}
}
