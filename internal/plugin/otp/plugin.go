// Package otp es el plugin de codigos de un solo uso: genera, guarda,
// envia y verifica OTPs sobre un repository.OTPRepository.
package otp

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"authkit/internal/api"
	"authkit/internal/domain"
	"authkit/internal/repository"
	"authkit/internal/server"
)

const (
	DefaultTTL         = 10 * time.Minute
	DefaultMaxAttempts = 5
)

var (
	ErrRateLimited     = errors.New("otp rate limited")
	ErrExpired         = errors.New("otp expired")
	ErrInvalidated     = errors.New("otp no longer valid")
	ErrTooManyAttempts = errors.New("otp attempts exhausted")
)

// SendFunc entrega el codigo al usuario; la entrega es externa al plugin.
type SendFunc func(ctx context.Context, email, code string) error

// GenerateFunc reemplaza al generador por defecto.
type GenerateFunc func(ctx context.Context) (string, error)

type Options struct {
	Repository repository.OTPRepository
	Send       SendFunc
	Generate   GenerateFunc
	// Limiter is optional; nil disables rate limiting on otp.send.
	Limiter     RateLimiter
	TTL         time.Duration
	MaxAttempts int
	Now         func() time.Time
}

type plugin struct {
	logger *zap.Logger
	opts   Options
	// locks guards the read/check/update sequence of verify per OTP id.
	locks *keyedMutex
}

type GenerateRequest struct {
	Email string `json:"email,omitempty"`
}

type SendRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type HashRequest struct {
	OTP string `json:"otp"`
}

type VerifyRequest struct {
	ID  string `json:"id"`
	OTP string `json:"otp"`
}

type VerifyResponse struct {
	Valid             bool `json:"valid"`
	RemainingAttempts int  `json:"remainingAttempts"`
}

type IDRequest struct {
	ID string `json:"id"`
}

// New construye el plugin. Repository es obligatorio; sin Send los envios
// solo se registran en el logger.
func New(logger *zap.Logger, opts Options) (*server.Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Repository == nil {
		return nil, repository.Errorf(repository.CodeInvalidInput, "otp plugin requires a repository")
	}
	if opts.Send == nil {
		opts.Send = logSend(logger)
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &plugin{logger: logger, opts: opts, locks: newKeyedMutex()}

	b := api.NewBuilder(api.WithNamespace("otp")).
		Handle("generate", api.Typed(p.generate)).
		Handle("store", api.Typed(p.store)).
		Handle("send", api.Typed(p.send)).
		Handle("hash", api.Typed(p.hash)).
		Handle("verify", api.Typed(p.verify)).
		Handle("revoke", api.Typed(p.revoke)).
		Handle("list", api.Typed(p.list))

	return server.New(logger).RegisterAPI(b), nil
}

func logSend(logger *zap.Logger) SendFunc {
	return func(_ context.Context, email, code string) error {
		logger.Info("sending otp", zap.String("email", email), zap.String("otp", code))
		return nil
	}
}

func (p *plugin) generate(ctx context.Context, _ GenerateRequest) (string, error) {
	if p.opts.Generate != nil {
		code, err := p.opts.Generate(ctx)
		if err != nil {
			return "", err
		}
		if code != "" {
			return code, nil
		}
	}
	return GenerateCode()
}

// store guarda el OTP tal como llega; el id lo asigna el repositorio.
func (p *plugin) store(ctx context.Context, req domain.OTP) (domain.OTP, error) {
	if strings.TrimSpace(req.HashedOTP) == "" {
		return domain.OTP{}, repository.Errorf(repository.CodeInvalidInput, "hashedOtp is required")
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = p.opts.Now().UTC()
	}
	req.ID = ""
	return p.opts.Repository.Create(ctx, req)
}

// send devuelve false si la entrega falla; el error solo se registra.
func (p *plugin) send(ctx context.Context, req SendRequest) (bool, error) {
	email := domain.NormalizeEmail(req.Email)
	if email == "" || req.OTP == "" {
		return false, repository.Errorf(repository.CodeInvalidInput, "email and otp are required")
	}
	if p.opts.Limiter != nil && !p.opts.Limiter.Allow(ctx, email) {
		return false, ErrRateLimited
	}
	if err := p.opts.Send(ctx, email, req.OTP); err != nil {
		p.logger.Warn("send otp failed", zap.Error(err), zap.String("email", email))
		return false, nil
	}
	return true, nil
}

func (p *plugin) hash(_ context.Context, req HashRequest) (string, error) {
	if req.OTP == "" {
		return "", repository.Errorf(repository.CodeInvalidInput, "otp is required")
	}
	return HashCode(req.OTP)
}

// verify consume un intento. El OTP queda invalidado al acertar, al
// agotar los intentos o al vencer. Las llamadas sobre el mismo id se
// serializan para que cada intento quede contado antes del siguiente.
func (p *plugin) verify(ctx context.Context, req VerifyRequest) (VerifyResponse, error) {
	code := strings.TrimSpace(req.OTP)
	if req.ID == "" || code == "" {
		return VerifyResponse{}, repository.Errorf(repository.CodeInvalidInput, "id and otp are required")
	}
	unlock := p.locks.Lock(req.ID)
	defer unlock()

	rec, err := p.opts.Repository.GetByID(ctx, req.ID)
	if err != nil {
		return VerifyResponse{}, err
	}
	if rec == nil {
		return VerifyResponse{}, repository.Errorf(repository.CodeNotFound, "otp %q not found", req.ID)
	}
	if !rec.IsValid {
		return VerifyResponse{}, ErrInvalidated
	}
	if p.opts.Now().After(rec.ExpiresAt(p.opts.TTL)) {
		if err := p.invalidate(ctx, rec.ID); err != nil {
			return VerifyResponse{}, err
		}
		return VerifyResponse{}, ErrExpired
	}
	if rec.AttemptCount >= p.opts.MaxAttempts {
		if err := p.invalidate(ctx, rec.ID); err != nil {
			return VerifyResponse{}, err
		}
		return VerifyResponse{}, ErrTooManyAttempts
	}

	attempts := rec.AttemptCount + 1
	valid := isValidCode(code) && VerifyCode(code, rec.HashedOTP)
	stillValid := !valid && attempts < p.opts.MaxAttempts
	if _, err := p.opts.Repository.Update(ctx, rec.ID, domain.OTPPatch{
		AttemptCount: &attempts,
		IsValid:      &stillValid,
	}); err != nil {
		return VerifyResponse{}, err
	}

	remaining := 0
	if stillValid {
		remaining = p.opts.MaxAttempts - attempts
	}
	return VerifyResponse{Valid: valid, RemainingAttempts: remaining}, nil
}

func (p *plugin) invalidate(ctx context.Context, id string) error {
	invalid := false
	_, err := p.opts.Repository.Update(ctx, id, domain.OTPPatch{IsValid: &invalid})
	return err
}

func (p *plugin) revoke(ctx context.Context, req IDRequest) (bool, error) {
	if req.ID == "" {
		return false, repository.Errorf(repository.CodeInvalidInput, "id is required")
	}
	if err := p.opts.Repository.Delete(ctx, req.ID); err != nil {
		return false, err
	}
	return true, nil
}

func (p *plugin) list(ctx context.Context, opts repository.ListOptions) (repository.Page[domain.OTP], error) {
	return p.opts.Repository.List(ctx, opts)
}
