// Package memory implementa los repositorios en memoria sobre un Store
// generico con indice unico opcional.
package memory

import (
	"sync"

	"golang.org/x/text/language"

	"authkit/internal/repository"
)

// Schema describe la forma de un registro para el Store.
type Schema[T any] struct {
	ID    func(T) string
	SetID func(*T, string)
	// Clone must return a value sharing no mutable memory with its input.
	Clone func(T) T
	// Fields lists the sortable fields. A nil return value sorts as null.
	// "id" is always sortable.
	Fields map[string]func(T) any
	// Unique is nil for stores without a uniqueness constraint.
	Unique *UniqueKey[T]
}

// UniqueKey define el campo unico y su normalizacion.
type UniqueKey[T any] struct {
	Field     string
	Extract   func(T) string
	Normalize func(string) string
}

func (u *UniqueKey[T]) key(rec T) string {
	if u.Normalize == nil {
		return u.Extract(rec)
	}
	return u.Normalize(u.Extract(rec))
}

// Patch aplica una actualizacion parcial sobre una copia privada.
type Patch[T any] interface {
	Apply(T) T
}

// Config agrupa las dependencias opcionales de un Store.
type Config[T any] struct {
	// GenerateID defaults to NewSequence("").
	GenerateID IDGenerator
	// Seed records must carry their ids and satisfy the unique constraint.
	Seed []T
	// Locale drives string collation. Zero value is language.Und.
	Locale language.Tag
}

// Store is an in-memory record store with an optional unique secondary
// index. Writes hold the write lock for the whole check/store/index
// sequence; reads share the read lock.
type Store[T any] struct {
	mu      sync.RWMutex
	schema  Schema[T]
	newID   IDGenerator
	locale  language.Tag
	records *recordStore[T]
	index   *uniqueIndex
}

// New valida el seed y construye el Store. Falla si dos registros del seed
// comparten id o clave unica normalizada.
func New[T any](schema Schema[T], cfg Config[T]) (*Store[T], error) {
	if schema.ID == nil || schema.SetID == nil || schema.Clone == nil {
		return nil, repository.Errorf(repository.CodeInvalidInput, "schema requires ID, SetID and Clone")
	}
	if schema.Unique != nil && schema.Unique.Extract == nil {
		return nil, repository.Errorf(repository.CodeInvalidInput, "unique key %q has no extractor", schema.Unique.Field)
	}
	s := &Store[T]{
		schema:  schema,
		newID:   cfg.GenerateID,
		locale:  cfg.Locale,
		records: newRecordStore[T](),
	}
	if s.newID == nil {
		s.newID = NewSequence("")
	}
	if schema.Unique != nil {
		s.index = newUniqueIndex()
	}
	for _, rec := range cfg.Seed {
		if err := s.seed(rec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store[T]) seed(rec T) error {
	id := s.schema.ID(rec)
	if id == "" {
		return repository.Errorf(repository.CodeInvalidInput, "seed record without id")
	}
	if _, ok := s.records.get(id); ok {
		return repository.Errorf(repository.CodeInvalidInput, "duplicate seed id %q", id)
	}
	if s.index != nil {
		key := s.schema.Unique.key(rec)
		if owner, ok := s.index.lookup(key); ok {
			return repository.Errorf(repository.CodeUniqueViolation,
				"seed records %q and %q share %s %q", owner, id, s.schema.Unique.Field, key)
		}
		_ = s.index.insert(key, id)
	}
	s.records.put(id, s.schema.Clone(rec))
	return nil
}

// Get devuelve una copia del registro con ese id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records.get(id)
	if !ok {
		var zero T
		return zero, false
	}
	return s.schema.Clone(rec), true
}

// GetByKey normalizes key and looks it up in the unique index. Stores
// without a unique key never find anything.
func (s *Store[T]) GetByKey(key string) (T, bool) {
	var zero T
	if s.index == nil {
		return zero, false
	}
	if s.schema.Unique.Normalize != nil {
		key = s.schema.Unique.Normalize(key)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.index.lookup(key)
	if !ok {
		return zero, false
	}
	rec, ok := s.records.get(id)
	if !ok {
		return zero, false
	}
	return s.schema.Clone(rec), true
}

// Create asigna un id nuevo, verifica la clave unica y guarda el registro.
func (s *Store[T]) Create(rec T) (T, error) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nextID()
	if err != nil {
		return zero, err
	}

	rec = s.schema.Clone(rec)
	s.schema.SetID(&rec, id)

	if s.index != nil {
		key := s.schema.Unique.key(rec)
		if err := s.index.insert(key, id); err != nil {
			return zero, repository.NewError(repository.CodeUniqueViolation,
				"duplicate "+s.schema.Unique.Field, err)
		}
	}
	s.records.put(id, rec)
	return s.schema.Clone(rec), nil
}

// nextID salta los ids ya ocupados, p. ej. los del seed. Con n registros
// vivos, un generador que no repite encuentra un id libre en n+1 llamadas.
func (s *Store[T]) nextID() (string, error) {
	attempts := s.records.len() + 1
	for i := 0; i < attempts; i++ {
		id := s.newID()
		if id == "" {
			return "", repository.Errorf(repository.CodeUnknown, "id generator returned an empty id")
		}
		if _, ok := s.records.get(id); !ok {
			return id, nil
		}
	}
	return "", repository.Errorf(repository.CodeUnknown, "id generator returned ids already in use %d times", attempts)
}

// Update merges patch into the record. On a unique-key conflict neither the
// records nor the index change.
func (s *Store[T]) Update(id string, patch Patch[T]) (T, error) {
	var zero T
	if patch == nil {
		return zero, repository.Errorf(repository.CodeInvalidInput, "nil patch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records.get(id)
	if !ok {
		return zero, repository.Errorf(repository.CodeNotFound, "entry %q not found", id)
	}
	next := patch.Apply(s.schema.Clone(cur))
	s.schema.SetID(&next, id)

	if s.index != nil {
		oldKey, newKey := s.schema.Unique.key(cur), s.schema.Unique.key(next)
		if err := s.index.rekey(oldKey, newKey, id); err != nil {
			return zero, repository.NewError(repository.CodeUniqueViolation,
				"duplicate "+s.schema.Unique.Field, err)
		}
	}
	s.records.put(id, next)
	return s.schema.Clone(next), nil
}

// Delete borra el registro y su clave del indice.
func (s *Store[T]) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records.get(id)
	if !ok {
		return repository.Errorf(repository.CodeNotFound, "entry %q not found", id)
	}
	if s.index != nil {
		key := s.schema.Unique.key(cur)
		if owner, ok := s.index.lookup(key); ok && owner == id {
			s.index.remove(key)
		}
	}
	s.records.delete(id)
	return nil
}

// List ordena el conjunto completo y despues aplica offset y limit.
func (s *Store[T]) List(opts repository.ListOptions) (repository.Page[T], error) {
	if opts.Limit < 0 || opts.Offset < 0 {
		return repository.Page[T]{}, repository.Errorf(repository.CodeInvalidInput,
			"limit and offset must be non-negative (limit=%d, offset=%d)", opts.Limit, opts.Offset)
	}
	srt, err := s.sorterFor(opts)
	if err != nil {
		return repository.Page[T]{}, err
	}

	s.mu.RLock()
	items := s.records.all()
	s.mu.RUnlock()

	// Stored values are replaced on write, never mutated, so sorting the
	// snapshot outside the lock is safe.
	srt.sort(items)

	total := len(items)
	start := min(opts.Offset, total)
	end := total
	if opts.Limit < total-start {
		end = start + opts.Limit
	}
	page := make([]T, 0, end-start)
	for _, rec := range items[start:end] {
		page = append(page, s.schema.Clone(rec))
	}
	return repository.Page[T]{
		Items: page,
		Meta: repository.PageMeta{
			Count:  len(page),
			Offset: opts.Offset,
			Total:  total,
		},
	}, nil
}

func (s *Store[T]) sorterFor(opts repository.ListOptions) (sorter[T], error) {
	srt := sorter[T]{coll: newCollator(s.locale), id: s.schema.ID}
	switch opts.Direction {
	case "", repository.Asc:
	case repository.Desc:
		srt.desc = true
	default:
		return srt, repository.Errorf(repository.CodeInvalidInput, "unknown sort direction %q", opts.Direction)
	}
	switch opts.SortField {
	case "":
	case "id":
		srt.field = func(rec T) any { return s.schema.ID(rec) }
	default:
		f, ok := s.schema.Fields[opts.SortField]
		if !ok {
			return srt, repository.Errorf(repository.CodeInvalidInput, "field %q is not sortable", opts.SortField)
		}
		srt.field = f
	}
	return srt, nil
}

// Len devuelve la cantidad de registros.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records.len()
}
