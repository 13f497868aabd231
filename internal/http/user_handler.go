package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"forum-api/internal/domain"
	"forum-api/internal/service"
)

// UserHandler mantiene dependencias para endpoints de autenticacion.
type UserHandler struct {
	logger       *zap.Logger
	userServ     *service.UserService
	jwtServ      *service.JWTService
	cookieSecure bool
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService, cookieSecure bool) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		logger:       logger,
		userServ:     userServ,
		jwtServ:      jwtServ,
		cookieSecure: cookieSecure,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register maneja POST /api/auth/register (y su alias /signup).
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, err := h.userServ.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, h.logger, "register", err)
		return
	}

	h.respondWithSession(c, http.StatusCreated, user)
}

// Login maneja POST /api/auth/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	key, _ := domain.ResolveLoginKey(req.Email, req.Username)
	user, err := h.userServ.Authenticate(c.Request.Context(), key, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		case errors.Is(err, service.ErrRateLimited):
			LoginAttemptsTotal.WithLabelValues("rate_limited").Inc()
		}
		respondServiceError(c, h.logger, "login", err)
		return
	}

	LoginAttemptsTotal.WithLabelValues("success").Inc()
	h.respondWithSession(c, http.StatusOK, user)
}

// Logout maneja POST /api/auth/logout. Solo borra la cookie; el token sigue valido hasta expirar.
func (h *UserHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookieName, "", -1, "/", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me maneja GET /api/auth/me; requiere AuthMiddleware.
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok || claims.UserID == "" {
		respondError(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	user, err := h.userServ.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, h.logger, "me", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

func (h *UserHandler) respondWithSession(c *gin.Context, status int, user domain.User) {
	token, _, err := h.jwtServ.Issue(user.ID, user.Username)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, msgInternalError)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookieName, token, int(h.jwtServ.TTL()/time.Second), "/", "", h.cookieSecure, true)
	c.JSON(status, gin.H{"user": user.Public(), "token": token})
}
