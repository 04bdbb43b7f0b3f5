// Package token emite y valida los JWT de sesion.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"authkit/internal/domain"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"

	defaultIssuer = "authkit"
)

// Service emite pares access/refresh y rota los refresh tokens.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	store      RefreshStore
	now        func() time.Time
}

type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type Claims struct {
	UserID        string `json:"uid"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	TokenType     string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrInvalid = errors.New("jwt invalid")
	ErrExpired = errors.New("jwt expired")
)

// Option configura el Service.
type Option func(*Service)

func WithStore(store RefreshStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = issuer
		}
	}
}

// WithClock reemplaza time.Now, para tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(secret string, accessTTL, refreshTTL time.Duration, opts ...Option) *Service {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	s := &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     defaultIssuer,
		store:      NewMemoryRefreshStore(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) GeneratePair(ctx context.Context, user domain.User) (Pair, error) {
	if len(s.secret) == 0 || strings.TrimSpace(user.ID) == "" {
		return Pair{}, ErrInvalid
	}
	now := s.now().UTC()
	access, err := s.sign(s.claimsFor(user, now, s.accessTTL, typeAccess))
	if err != nil {
		return Pair{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshClaims := s.claimsFor(user, now, s.refreshTTL, typeRefresh)
	refreshClaims.ID = uuid.NewString()
	refresh, err := s.sign(refreshClaims)
	if err != nil {
		return Pair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := s.store.Store(ctx, refreshClaims.ID, user.ID, s.refreshTTL); err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// Refresh revoca el refresh token recibido y emite un par nuevo. Cada
// refresh token sirve una sola vez.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return Pair{}, err
	}
	ok, err := s.store.Exists(ctx, claims.ID)
	if err != nil {
		return Pair{}, err
	}
	if !ok {
		return Pair{}, ErrInvalid
	}
	if err := s.store.Revoke(ctx, claims.ID); err != nil {
		return Pair{}, err
	}
	return s.GeneratePair(ctx, claims.user(s.now().UTC()))
}

func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return err
	}
	return s.store.Revoke(ctx, claims.ID)
}

func (s *Service) ParseAccess(accessToken string) (Claims, error) {
	claims, err := s.parse(accessToken)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != typeAccess {
		return Claims{}, ErrInvalid
	}
	return claims, nil
}

func (s *Service) parseRefresh(refreshToken string) (Claims, error) {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != typeRefresh || claims.ID == "" {
		return Claims{}, ErrInvalid
	}
	return claims, nil
}

func (s *Service) claimsFor(user domain.User, now time.Time, ttl time.Duration, tokenType string) Claims {
	var name string
	if user.Name != nil {
		name = *user.Name
	}
	return Claims{
		UserID:        user.ID,
		Email:         user.Email,
		Name:          name,
		EmailVerified: user.EmailVerifiedAt != nil,
		TokenType:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (s *Service) sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parse(tokenString string) (Claims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrInvalid
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}
	if strings.TrimSpace(claims.UserID) == "" || claims.Subject != claims.UserID {
		return Claims{}, ErrInvalid
	}
	return claims, nil
}

// user rebuilds the token subject from the claims.
func (c Claims) user(now time.Time) domain.User {
	u := domain.User{ID: c.UserID, Email: c.Email}
	if c.Name != "" {
		name := c.Name
		u.Name = &name
	}
	if c.EmailVerified {
		u.EmailVerifiedAt = &now
	}
	return u
}
