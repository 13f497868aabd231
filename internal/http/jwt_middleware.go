package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"forum-api/internal/service"
)

const (
	authClaimsKey = "auth_claims"

	// TokenCookieName es la cookie de sesion que emite login/register.
	TokenCookieName = "token"
)

// tokenFromRequest busca primero la cookie y despues el header Authorization.
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(TokenCookieName); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

func authenticate(c *gin.Context, jwtSvc *service.JWTService) (service.Claims, string) {
	token := tokenFromRequest(c)
	if token == "" {
		return service.Claims{}, "missing"
	}
	claims, err := jwtSvc.Parse(token)
	if err != nil {
		if errors.Is(err, service.ErrJWTExpired) {
			return service.Claims{}, "expired"
		}
		return service.Claims{}, "invalid"
	}
	return claims, ""
}

// AuthMiddleware exige un token valido. Toda falla responde el mismo 401;
// el motivo queda solo en el log.
func AuthMiddleware(logger *zap.Logger, jwtSvc *service.JWTService) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if jwtSvc == nil {
			respondError(c, http.StatusInternalServerError, msgInternalError)
			c.Abort()
			return
		}

		claims, reason := authenticate(c, jwtSvc)
		if reason != "" {
			logger.Debug("auth gate rejected request",
				zap.String("reason", reason),
				zap.String("path", c.Request.URL.Path),
			)
			GateRejectionsTotal.WithLabelValues(reason).Inc()
			respondError(c, http.StatusUnauthorized, msgUnauthorized)
			c.Abort()
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware adjunta los claims si hay un token valido y sigue como anonimo si no.
func OptionalAuthMiddleware(jwtSvc *service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc != nil {
			if claims, reason := authenticate(c, jwtSvc); reason == "" {
				c.Set(authClaimsKey, claims)
			}
		}
		c.Next()
	}
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}
