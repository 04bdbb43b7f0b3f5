// Package repository define los contratos de persistencia de usuarios y OTPs.
package repository

import (
	"context"

	"authkit/internal/domain"
)

// Direction es el sentido de ordenamiento de un listado.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ListOptions describe una pagina de un listado ordenado.
// SortField vacio ordena por orden de insercion.
type ListOptions struct {
	Limit     int       `json:"limit"`
	Offset    int       `json:"offset"`
	SortField string    `json:"sortField,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// PageMeta acompaña a los items de una pagina.
type PageMeta struct {
	Count  int `json:"count"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// Page es el resultado de List.
type Page[T any] struct {
	Items []T      `json:"items"`
	Meta  PageMeta `json:"meta"`
}

// UserRepository define el contrato de persistencia para usuarios.
// GetByID y GetByEmail devuelven nil, nil cuando no hay registro.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Update(ctx context.Context, id string, patch domain.UserPatch) (domain.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) (Page[domain.User], error)
}

// OTPRepository define el contrato de persistencia para OTPs.
type OTPRepository interface {
	GetByID(ctx context.Context, id string) (*domain.OTP, error)
	Create(ctx context.Context, otp domain.OTP) (domain.OTP, error)
	Update(ctx context.Context, id string, patch domain.OTPPatch) (domain.OTP, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) (Page[domain.OTP], error)
}
