// Package core es el plugin base: usuarios y sesiones.
package core

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"authkit/internal/api"
	"authkit/internal/domain"
	"authkit/internal/repository"
	"authkit/internal/server"
	"authkit/internal/token"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

type Options struct {
	Users repository.UserRepository
	// Tokens enables signIn, refreshSession, signOut and me.
	Tokens     *token.Service
	BcryptCost int
	Now        func() time.Time
}

type plugin struct {
	logger *zap.Logger
	opts   Options
}

type IDRequest struct {
	ID string `json:"id"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type CreateUserRequest struct {
	Email           string     `json:"email"`
	Name            *string    `json:"name"`
	Age             *int       `json:"age"`
	Password        string     `json:"password,omitempty"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
}

// UpdateUserRequest: un campo ausente no cambia; null borra name, age o
// emailVerifiedAt.
type UpdateUserRequest struct {
	ID              string                     `json:"id"`
	Email           *string                    `json:"email,omitempty"`
	Name            domain.Nullable[string]    `json:"name"`
	Age             domain.Nullable[int]       `json:"age"`
	Password        *string                    `json:"password,omitempty"`
	EmailVerifiedAt domain.Nullable[time.Time] `json:"emailVerifiedAt"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type Session struct {
	User   domain.User `json:"user"`
	Tokens token.Pair  `json:"tokens"`
}

func New(logger *zap.Logger, opts Options) (*server.Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Users == nil {
		return nil, repository.Errorf(repository.CodeInvalidInput, "core plugin requires a user repository")
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &plugin{logger: logger, opts: opts}

	b := api.NewBuilder().
		Handle("getUserById", api.Typed(p.getUserByID)).
		Handle("getUserByEmail", api.Typed(p.getUserByEmail)).
		Handle("createUser", api.Typed(p.createUser)).
		Handle("updateUser", api.Typed(p.updateUser)).
		Handle("deleteUser", api.Typed(p.deleteUser)).
		Handle("listUsers", api.Typed(p.listUsers))

	if opts.Tokens != nil {
		b.Handle("signIn", api.Typed(p.signIn)).
			Handle("refreshSession", api.Typed(p.refreshSession)).
			Handle("signOut", api.Typed(p.signOut)).
			Handle("me", api.Typed(p.me))
	}

	return server.New(logger).
		RegisterAPI(b).
		RegisterRoutes(p.routes), nil
}

func (p *plugin) getUserByID(ctx context.Context, req IDRequest) (*domain.User, error) {
	if req.ID == "" {
		return nil, repository.Errorf(repository.CodeInvalidInput, "id is required")
	}
	return p.opts.Users.GetByID(ctx, req.ID)
}

func (p *plugin) getUserByEmail(ctx context.Context, req EmailRequest) (*domain.User, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, repository.Errorf(repository.CodeInvalidInput, "email is required")
	}
	return p.opts.Users.GetByEmail(ctx, req.Email)
}

func (p *plugin) createUser(ctx context.Context, req CreateUserRequest) (domain.User, error) {
	email, err := validEmail(req.Email)
	if err != nil {
		return domain.User{}, err
	}
	if req.Age != nil && *req.Age < 0 {
		return domain.User{}, repository.Errorf(repository.CodeInvalidInput, "age must be non-negative")
	}
	user := domain.User{
		Email:           email,
		Name:            req.Name,
		Age:             req.Age,
		EmailVerifiedAt: req.EmailVerifiedAt,
		CreatedAt:       p.opts.Now().UTC(),
	}
	if req.Password != "" {
		if user.PasswordHash, err = p.hashPassword(req.Password); err != nil {
			return domain.User{}, err
		}
	}
	return p.opts.Users.Create(ctx, user)
}

func (p *plugin) updateUser(ctx context.Context, req UpdateUserRequest) (domain.User, error) {
	if req.ID == "" {
		return domain.User{}, repository.Errorf(repository.CodeInvalidInput, "id is required")
	}
	patch := domain.UserPatch{
		Name:            req.Name,
		Age:             req.Age,
		EmailVerifiedAt: req.EmailVerifiedAt,
	}
	if req.Email != nil {
		email, err := validEmail(*req.Email)
		if err != nil {
			return domain.User{}, err
		}
		patch.Email = &email
	}
	if req.Age.Value != nil && *req.Age.Value < 0 {
		return domain.User{}, repository.Errorf(repository.CodeInvalidInput, "age must be non-negative")
	}
	if req.Password != nil {
		hash, err := p.hashPassword(*req.Password)
		if err != nil {
			return domain.User{}, err
		}
		patch.PasswordHash = &hash
	}
	return p.opts.Users.Update(ctx, req.ID, patch)
}

func (p *plugin) deleteUser(ctx context.Context, req IDRequest) (bool, error) {
	if req.ID == "" {
		return false, repository.Errorf(repository.CodeInvalidInput, "id is required")
	}
	if err := p.opts.Users.Delete(ctx, req.ID); err != nil {
		return false, err
	}
	return true, nil
}

func (p *plugin) listUsers(ctx context.Context, opts repository.ListOptions) (repository.Page[domain.User], error) {
	return p.opts.Users.List(ctx, opts)
}

func (p *plugin) signIn(ctx context.Context, req SignInRequest) (Session, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, err := p.opts.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		return Session{}, err
	}
	if user == nil || user.PasswordHash == "" {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	pair, err := p.opts.Tokens.GeneratePair(ctx, *user)
	if err != nil {
		return Session{}, err
	}
	p.logger.Info("user signed in", zap.String("user_id", user.ID))
	return Session{User: *user, Tokens: pair}, nil
}

func (p *plugin) refreshSession(ctx context.Context, req RefreshRequest) (token.Pair, error) {
	return p.opts.Tokens.Refresh(ctx, req.RefreshToken)
}

func (p *plugin) signOut(ctx context.Context, req RefreshRequest) (bool, error) {
	if err := p.opts.Tokens.Revoke(ctx, req.RefreshToken); err != nil {
		return false, err
	}
	return true, nil
}

// me devuelve el usuario del access token presente en ctx.
func (p *plugin) me(ctx context.Context, _ struct{}) (domain.User, error) {
	claims, ok := token.ClaimsFromContext(ctx)
	if !ok {
		return domain.User{}, ErrUnauthenticated
	}
	user, err := p.opts.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, repository.Errorf(repository.CodeNotFound, "user %q not found", claims.UserID)
	}
	return *user, nil
}

// routes expone GET /users/:id para clientes REST.
func (p *plugin) routes(r gin.IRouter) {
	r.GET("/users/:id", func(c *gin.Context) {
		user, err := p.opts.Users.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			p.logger.Error("get user failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not get user"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	})
}

func (p *plugin) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.opts.BcryptCost)
	if err != nil {
		return "", repository.NewError(repository.CodeInvalidInput, "invalid password", err)
	}
	return string(hash), nil
}

func validEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", repository.Errorf(repository.CodeInvalidInput, "invalid email %q", email)
	}
	return email, nil
}
