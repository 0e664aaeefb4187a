package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub/internal/service/auth"
)

type AuthHandler struct {
	auth   *auth.Service
	logger *zap.Logger
}

func NewAuthHandler(authService *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		logger: logger,
	}
}

// Register handles POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var in auth.RegisterInput
	if err := bindJSON(c, &in); err != nil {
		WriteError(c, h.logger, err, "Registration failed")
		return
	}

	res, err := h.auth.Register(c.Request.Context(), in)
	if err != nil {
		WriteError(c, h.logger, err, "Registration failed")
		return
	}

	success(c, http.StatusCreated, gin.H{
		"message": "User registered",
		"payload": res,
	})
}

// Login handles POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var in auth.LoginInput
	if err := bindJSON(c, &in); err != nil {
		WriteError(c, h.logger, err, "Login failed")
		return
	}

	res, err := h.auth.Login(c.Request.Context(), in)
	if err != nil {
		WriteError(c, h.logger, err, "Login failed")
		return
	}

	success(c, http.StatusOK, gin.H{
		"message": "Login successful",
		"payload": res,
	})
}

// Logout handles POST /logout. Only the token of this request is revoked.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), Principal(c), TokenID(c)); err != nil {
		WriteError(c, h.logger, err, "Logout failed")
		return
	}
	success(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// Profile handles GET /user
func (h *AuthHandler) Profile(c *gin.Context) {
	user, err := h.auth.Profile(Principal(c))
	if err != nil {
		WriteError(c, h.logger, err, "Could not fetch user profile.")
		return
	}
	success(c, http.StatusOK, gin.H{
		"message": "Authenticated user",
		"payload": user,
	})
}
