package domain

import (
	"strings"
	"time"
)

// User es el registro de identidad persistido. PasswordHash nunca se serializa.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Username     string    `json:"username,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicUser es la proyeccion que se devuelve a los clientes.
type PublicUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
	}
}

type LoginKeyKind int

const (
	LoginByEmail LoginKeyKind = iota + 1
	LoginByUsername
)

// LoginKey identifica la cuenta en un intento de login: email normalizado o username exacto.
type LoginKey struct {
	Kind  LoginKeyKind
	Value string
}

func ByEmail(email string) LoginKey {
	return LoginKey{Kind: LoginByEmail, Value: strings.ToLower(strings.TrimSpace(email))}
}

func ByUsername(username string) LoginKey {
	return LoginKey{Kind: LoginByUsername, Value: strings.TrimSpace(username)}
}

// ResolveLoginKey elige email si viene informado y username en caso contrario.
func ResolveLoginKey(email, username string) (LoginKey, bool) {
	if strings.TrimSpace(email) != "" {
		return ByEmail(email), true
	}
	if strings.TrimSpace(username) != "" {
		return ByUsername(username), true
	}
	return LoginKey{}, false
}

func (k LoginKey) String() string {
	switch k.Kind {
	case LoginByEmail:
		return "email:" + k.Value
	case LoginByUsername:
		return "username:" + k.Value
	default:
		return ""
	}
}
