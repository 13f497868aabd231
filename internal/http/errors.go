package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"forum-api/internal/service"
)

const (
	msgUnauthorized  = "unauthorized"
	msgInvalidBody   = "invalid request"
	msgInternalError = "server error"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// respondServiceError traduce errores de servicio a status y mensaje estables.
// Los errores inesperados solo se detallan en el log.
func respondServiceError(c *gin.Context, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		msg := service.ValidationMessage(err)
		if msg == "" {
			msg = msgInvalidBody
		}
		respondError(c, http.StatusBadRequest, msg)
	case errors.Is(err, service.ErrConflict):
		respondError(c, http.StatusConflict, service.ErrConflict.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(c, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, service.ErrRateLimited):
		respondError(c, http.StatusTooManyRequests, "too many requests")
	case errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "Post not found")
	case errors.Is(err, service.ErrDebateNotFound):
		respondError(c, http.StatusNotFound, "Debate not found")
	case errors.Is(err, service.ErrMentorNotFound):
		respondError(c, http.StatusNotFound, "Mentor not found")
	default:
		logger.Error(op+" failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, msgInternalError)
	}
}

// bindOptionalJSON acepta un body vacio como objeto vacio.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
