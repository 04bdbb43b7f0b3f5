package memory

import (
	"context"

	"golang.org/x/text/language"

	"authkit/internal/domain"
	"authkit/internal/repository"
)

// UserOptions configura un UserRepository en memoria.
type UserOptions struct {
	GenerateID   IDGenerator
	InitialUsers []domain.User
	Locale       language.Tag
}

// UserRepository implementa repository.UserRepository en memoria, con
// unicidad por email normalizado.
type UserRepository struct {
	store *Store[domain.User]
}

var _ repository.UserRepository = (*UserRepository)(nil)

func userSchema() Schema[domain.User] {
	return Schema[domain.User]{
		ID:    func(u domain.User) string { return u.ID },
		SetID: func(u *domain.User, id string) { u.ID = id },
		Clone: domain.User.Clone,
		Fields: map[string]func(domain.User) any{
			"email": func(u domain.User) any { return u.Email },
			"name": func(u domain.User) any {
				if u.Name == nil {
					return nil
				}
				return *u.Name
			},
			"age": func(u domain.User) any {
				if u.Age == nil {
					return nil
				}
				return *u.Age
			},
			"emailVerifiedAt": func(u domain.User) any {
				if u.EmailVerifiedAt == nil {
					return nil
				}
				return *u.EmailVerifiedAt
			},
			"createdAt": func(u domain.User) any { return u.CreatedAt },
		},
		Unique: &UniqueKey[domain.User]{
			Field:     "email",
			Extract:   func(u domain.User) string { return u.Email },
			Normalize: domain.NormalizeEmail,
		},
	}
}

// NewUserRepository falla si InitialUsers repite ids o emails normalizados.
func NewUserRepository(opts UserOptions) (*UserRepository, error) {
	store, err := New(userSchema(), Config[domain.User]{
		GenerateID: opts.GenerateID,
		Seed:       opts.InitialUsers,
		Locale:     opts.Locale,
	})
	if err != nil {
		return nil, err
	}
	return &UserRepository{store: store}, nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.store.Get(id)
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := r.store.GetByKey(email)
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) Create(_ context.Context, user domain.User) (domain.User, error) {
	return r.store.Create(user)
}

func (r *UserRepository) Update(_ context.Context, id string, patch domain.UserPatch) (domain.User, error) {
	return r.store.Update(id, patch)
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	return r.store.Delete(id)
}

func (r *UserRepository) List(_ context.Context, opts repository.ListOptions) (repository.Page[domain.User], error) {
	return r.store.List(opts)
}
