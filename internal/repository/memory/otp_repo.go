package memory

import (
	"context"

	"golang.org/x/text/language"

	"authkit/internal/domain"
	"authkit/internal/repository"
)

// OTPOptions configura un OTPRepository en memoria.
type OTPOptions struct {
	GenerateID  IDGenerator
	InitialOTPs []domain.OTP
	Locale      language.Tag
}

// OTPRepository implementa repository.OTPRepository en memoria, sin indice
// secundario.
type OTPRepository struct {
	store *Store[domain.OTP]
}

var _ repository.OTPRepository = (*OTPRepository)(nil)

func otpSchema() Schema[domain.OTP] {
	return Schema[domain.OTP]{
		ID:    func(o domain.OTP) string { return o.ID },
		SetID: func(o *domain.OTP, id string) { o.ID = id },
		Clone: func(o domain.OTP) domain.OTP { return o },
		Fields: map[string]func(domain.OTP) any{
			"hashedOtp":    func(o domain.OTP) any { return o.HashedOTP },
			"createdAt":    func(o domain.OTP) any { return o.CreatedAt },
			"attemptCount": func(o domain.OTP) any { return o.AttemptCount },
			"isValid":      func(o domain.OTP) any { return o.IsValid },
			"purpose":      func(o domain.OTP) any { return o.Purpose },
		},
	}
}

func NewOTPRepository(opts OTPOptions) (*OTPRepository, error) {
	store, err := New(otpSchema(), Config[domain.OTP]{
		GenerateID: opts.GenerateID,
		Seed:       opts.InitialOTPs,
		Locale:     opts.Locale,
	})
	if err != nil {
		return nil, err
	}
	return &OTPRepository{store: store}, nil
}

func (r *OTPRepository) GetByID(_ context.Context, id string) (*domain.OTP, error) {
	o, ok := r.store.Get(id)
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *OTPRepository) Create(_ context.Context, otp domain.OTP) (domain.OTP, error) {
	return r.store.Create(otp)
}

func (r *OTPRepository) Update(_ context.Context, id string, patch domain.OTPPatch) (domain.OTP, error) {
	return r.store.Update(id, patch)
}

func (r *OTPRepository) Delete(_ context.Context, id string) error {
	return r.store.Delete(id)
}

func (r *OTPRepository) List(_ context.Context, opts repository.ListOptions) (repository.Page[domain.OTP], error) {
	return r.store.List(opts)
}
