package domain

import (
	"strings"
	"time"
)

type User struct {
	ID              string     `json:"id" yaml:"id"`
	Email           string     `json:"email" yaml:"email"`
	Name            *string    `json:"name" yaml:"name"`
	Age             *int       `json:"age" yaml:"age"`
	PasswordHash    string     `json:"-" yaml:"password_hash"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty" yaml:"email_verified_at"`
	CreatedAt       time.Time  `json:"createdAt" yaml:"created_at"`
}

// Clone devuelve una copia sin punteros compartidos.
func (u User) Clone() User {
	u.Name = clonePtr(u.Name)
	u.Age = clonePtr(u.Age)
	u.EmailVerifiedAt = clonePtr(u.EmailVerifiedAt)
	return u
}

// UserPatch lista los campos a modificar en un Update; los campos ausentes
// conservan su valor.
type UserPatch struct {
	Email           *string             `json:"email,omitempty"`
	Name            Nullable[string]    `json:"name"`
	Age             Nullable[int]       `json:"age"`
	PasswordHash    *string             `json:"-"`
	EmailVerifiedAt Nullable[time.Time] `json:"emailVerifiedAt"`
}

// Apply merges the patch into u. u must already be a private copy.
func (p UserPatch) Apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Name.Set {
		u.Name = clonePtr(p.Name.Value)
	}
	if p.Age.Set {
		u.Age = clonePtr(p.Age.Value)
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.EmailVerifiedAt.Set {
		u.EmailVerifiedAt = clonePtr(p.EmailVerifiedAt.Value)
	}
	return u
}

// NormalizeEmail es la clave canonica usada para la unicidad de emails.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
