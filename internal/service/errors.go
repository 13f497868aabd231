package service

import "errors"

var (
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrUserNotFound       = errors.New("user not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrPostNotFound       = errors.New("post not found")
	ErrDebateNotFound     = errors.New("debate not found")
	ErrMentorNotFound     = errors.New("mentor not found")
)

// ValidationError lleva un mensaje legible para el cliente y cumple errors.Is(err, ErrValidation).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// ValidationMessage devuelve el mensaje de un error de validacion, o "" si no lo es.
func ValidationMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return ""
}
