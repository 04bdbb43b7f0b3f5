package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"authkit/internal/domain"
	"authkit/internal/repository"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func testUser(id, email string, name *string, age *int) domain.User {
	return domain.User{ID: id, Email: email, Name: name, Age: age}
}

func newTestUserRepo(t *testing.T, seed ...domain.User) *UserRepository {
	t.Helper()
	repo, err := NewUserRepository(UserOptions{
		GenerateID:   NewSequence("u_"),
		InitialUsers: seed,
	})
	if err != nil {
		t.Fatalf("NewUserRepository: %v", err)
	}
	return repo
}

func userIDs(users []domain.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestUserRepositoryMissingRecords(t *testing.T) {
	repo := newTestUserRepo(t)
	ctx := context.Background()

	u, err := repo.GetByID(ctx, "nope")
	if err != nil || u != nil {
		t.Fatalf("expected nil, nil for missing id, got %v, %v", u, err)
	}
	u, err = repo.GetByEmail(ctx, "nobody@example.com")
	if err != nil || u != nil {
		t.Fatalf("expected nil, nil for missing email, got %v, %v", u, err)
	}
}

func TestUserRepositoryCreateAssignsID(t *testing.T) {
	repo := newTestUserRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, domain.User{ID: "ignored", Email: "a@example.com", Name: strPtr("A"), Age: intPtr(1)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "u_1" {
		t.Fatalf("expected id u_1, got %s", created.ID)
	}
	if created.Email != "a@example.com" {
		t.Fatalf("expected email a@example.com, got %s", created.Email)
	}

	second, err := repo.Create(ctx, domain.User{Email: "b@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if second.ID != "u_2" {
		t.Fatalf("expected id u_2, got %s", second.ID)
	}
}

func TestUserRepositoryCreateRejectsDuplicateEmail(t *testing.T) {
	repo := newTestUserRepo(t, testUser("u_1", "User@Example.com", strPtr("X"), nil))
	ctx := context.Background()

	for _, email := range []string{"user@example.com", "USER@EXAMPLE.COM", "  user@example.com "} {
		_, err := repo.Create(ctx, domain.User{Email: email})
		if !repository.IsCode(err, repository.CodeUniqueViolation) {
			t.Fatalf("expected unique-violation for %q, got %v", email, err)
		}
		var storeErr *repository.Error
		if !errors.As(err, &storeErr) {
			t.Fatalf("expected *repository.Error, got %T", err)
		}
	}

	page, err := repo.List(ctx, repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Meta.Total != 1 {
		t.Fatalf("expected no mutation after rejected creates, total=%d", page.Meta.Total)
	}
}

func TestUserRepositoryLookupIsCaseInsensitive(t *testing.T) {
	repo := newTestUserRepo(t, testUser("u_1", "a@example.com", strPtr("A"), nil))
	ctx := context.Background()

	byID, err := repo.GetByID(ctx, "u_1")
	if err != nil || byID == nil || byID.Email != "a@example.com" {
		t.Fatalf("GetByID: got %+v, %v", byID, err)
	}
	byEmail, err := repo.GetByEmail(ctx, "A@EXAMPLE.COM")
	if err != nil || byEmail == nil || byEmail.ID != "u_1" {
		t.Fatalf("GetByEmail: got %+v, %v", byEmail, err)
	}
}

func TestUserRepositoryUpdatePersists(t *testing.T) {
	repo := newTestUserRepo(t, testUser("u_1", "a@example.com", strPtr("A"), intPtr(1)))
	ctx := context.Background()

	updated, err := repo.Update(ctx, "u_1", domain.UserPatch{
		Name: domain.Some("A+"),
		Age:  domain.Some(2),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != "u_1" || *updated.Name != "A+" || *updated.Age != 2 || updated.Email != "a@example.com" {
		t.Fatalf("unexpected updated user: %+v", updated)
	}

	stored, _ := repo.GetByID(ctx, "u_1")
	if *stored.Name != "A+" || *stored.Age != 2 {
		t.Fatalf("update not persisted: %+v", stored)
	}

	cleared, err := repo.Update(ctx, "u_1", domain.UserPatch{Name: domain.Null[string]()})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if cleared.Name != nil || *cleared.Age != 2 {
		t.Fatalf("expected name cleared and age kept, got %+v", cleared)
	}
}

func TestUserRepositoryUpdateConflictKeepsIndex(t *testing.T) {
	repo := newTestUserRepo(t,
		testUser("u_1", "a@example.com", nil, nil),
		testUser("u_2", "b@example.com", nil, nil),
	)
	ctx := context.Background()

	before := snapshotUserState(repo)

	_, err := repo.Update(ctx, "u_2", domain.UserPatch{Email: strPtr("A@Example.com"), Name: domain.Some("changed")})
	if !repository.IsCode(err, repository.CodeUniqueViolation) {
		t.Fatalf("expected unique-violation, got %v", err)
	}
	if !errors.Is(err, repository.ErrUniqueViolation) {
		t.Fatalf("expected errors.Is ErrUniqueViolation")
	}

	after := snapshotUserState(repo)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("state changed on failed update:\nbefore=%+v\nafter=%+v", before, after)
	}

	a, _ := repo.GetByEmail(ctx, "a@example.com")
	b, _ := repo.GetByEmail(ctx, "b@example.com")
	if a == nil || a.ID != "u_1" || b == nil || b.ID != "u_2" {
		t.Fatalf("index damaged: a=%+v b=%+v", a, b)
	}
}

type userState struct {
	records map[string]domain.User
	order   []string
	index   map[string]string
}

func snapshotUserState(repo *UserRepository) userState {
	s := repo.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := userState{
		records: make(map[string]domain.User, len(s.records.byID)),
		order:   append([]string(nil), s.records.order...),
		index:   make(map[string]string, len(s.index.ids)),
	}
	for id, u := range s.records.byID {
		st.records[id] = u.Clone()
	}
	for k, v := range s.index.ids {
		st.index[k] = v
	}
	return st
}

func TestUserRepositoryUpdateCaseOnlyChange(t *testing.T) {
	repo := newTestUserRepo(t, testUser("u_1", "a@example.com", nil, nil))
	ctx := context.Background()

	updated, err := repo.Update(ctx, "u_1", domain.UserPatch{Email: strPtr("A@Example.Com")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Email != "A@Example.Com" {
		t.Fatalf("expected caller casing preserved, got %s", updated.Email)
	}
	for _, key := range []string{"a@example.com", "A@Example.Com"} {
		u, _ := repo.GetByEmail(ctx, key)
		if u == nil || u.ID != "u_1" {
			t.Fatalf("lookup %q: expected u_1, got %+v", key, u)
		}
	}
	if n := repo.store.index.len(); n != 1 {
		t.Fatalf("expected a single index entry, got %d", n)
	}
}

func TestUserRepositoryUpdateMovesIndexKey(t *testing.T) {
	repo := newTestUserRepo(t, testUser("u_1", "a@example.com", nil, nil))
	ctx := context.Background()

	if _, err := repo.Update(ctx, "u_1", domain.UserPatch{Email: strPtr("new@example.com")}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if u, _ := repo.GetByEmail(ctx, "a@example.com"); u != nil {
		t.Fatalf("old email still indexed: %+v", u)
	}
	if u, _ := repo.GetByEmail(ctx, "new@example.com"); u == nil || u.ID != "u_1" {
		t.Fatalf("new email not indexed: %+v", u)
	}
	if _, err := repo.Create(ctx, domain.User{Email: "a@example.com"}); err != nil {
		t.Fatalf("freed email should be reusable: %v", err)
	}
}

func TestUserRepositoryNotFound(t *testing.T) {
	repo := newTestUserRepo(t, testUser("u_1", "a@example.com", nil, nil))
	ctx := context.Background()

	if err := repo.Delete(ctx, "u_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if u, _ := repo.GetByID(ctx, "u_1"); u != nil {
		t.Fatalf("expected deleted user to be gone")
	}
	if u, _ := repo.GetByEmail(ctx, "a@example.com"); u != nil {
		t.Fatalf("expected deleted email to be gone")
	}

	if err := repo.Delete(ctx, "nope"); !repository.IsCode(err, repository.CodeNotFound) {
		t.Fatalf("expected entry-not-found on delete, got %v", err)
	}
	if _, err := repo.Update(ctx, "nope", domain.UserPatch{Name: domain.Some("x")}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected entry-not-found on update, got %v", err)
	}
}

func TestUserRepositoryListValidatesPagination(t *testing.T) {
	repo := newTestUserRepo(t)
	ctx := context.Background()

	cases := []repository.ListOptions{
		{Limit: -1, Offset: 0},
		{Limit: 1, Offset: -5},
		{Limit: 1, SortField: "password"},
		{Limit: 1, SortField: "name", Direction: "sideways"},
	}
	for _, opts := range cases {
		if _, err := repo.List(ctx, opts); !repository.IsCode(err, repository.CodeInvalidInput) {
			t.Fatalf("expected invalid-input for %+v, got %v", opts, err)
		}
	}
}

func TestUserRepositoryListPaginates(t *testing.T) {
	repo := newTestUserRepo(t)
	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		if _, err := repo.Create(ctx, domain.User{Email: email}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	p1, err := repo.List(ctx, repository.ListOptions{Limit: 2, Offset: 0, SortField: "id", Direction: repository.Asc})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := userIDs(p1.Items); !reflect.DeepEqual(got, []string{"u_1", "u_2"}) {
		t.Fatalf("page 1: got %v", got)
	}
	if p1.Meta != (repository.PageMeta{Count: 2, Offset: 0, Total: 3}) {
		t.Fatalf("page 1 meta: %+v", p1.Meta)
	}

	p2, err := repo.List(ctx, repository.ListOptions{Limit: 2, Offset: 2, SortField: "id", Direction: repository.Asc})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := userIDs(p2.Items); !reflect.DeepEqual(got, []string{"u_3"}) {
		t.Fatalf("page 2: got %v", got)
	}
	if p2.Meta != (repository.PageMeta{Count: 1, Offset: 2, Total: 3}) {
		t.Fatalf("page 2 meta: %+v", p2.Meta)
	}

	past, err := repo.List(ctx, repository.ListOptions{Limit: 2, Offset: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if past.Meta.Count != 0 || past.Meta.Total != 3 || len(past.Items) != 0 {
		t.Fatalf("expected empty page past the end, got %+v", past)
	}
}

func TestUserRepositoryListSorting(t *testing.T) {
	repo := newTestUserRepo(t,
		testUser("u_2", "user10@example.com", strPtr("user10"), intPtr(5)),
		testUser("u_1", "user2@example.com", strPtr("user2"), intPtr(5)),
		testUser("u_3", "user1@example.com", strPtr("user1"), intPtr(1)),
	)
	ctx := context.Background()

	t.Run("numeric aware names", func(t *testing.T) {
		page, err := repo.List(ctx, repository.ListOptions{Limit: 10, SortField: "name", Direction: repository.Asc})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		var names []string
		for _, u := range page.Items {
			names = append(names, *u.Name)
		}
		if !reflect.DeepEqual(names, []string{"user1", "user2", "user10"}) {
			t.Fatalf("unexpected order: %v", names)
		}
	})

	t.Run("ties by id asc", func(t *testing.T) {
		page, err := repo.List(ctx, repository.ListOptions{Limit: 10, SortField: "age", Direction: repository.Asc})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if got := userIDs(page.Items); !reflect.DeepEqual(got, []string{"u_3", "u_1", "u_2"}) {
			t.Fatalf("unexpected order: %v", got)
		}
	})

	t.Run("ties by id desc", func(t *testing.T) {
		page, err := repo.List(ctx, repository.ListOptions{Limit: 10, SortField: "age", Direction: repository.Desc})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if got := userIDs(page.Items); !reflect.DeepEqual(got, []string{"u_2", "u_1", "u_3"}) {
			t.Fatalf("unexpected order: %v", got)
		}
	})

	t.Run("default is insertion order", func(t *testing.T) {
		page, err := repo.List(ctx, repository.ListOptions{Limit: 10})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if got := userIDs(page.Items); !reflect.DeepEqual(got, []string{"u_2", "u_1", "u_3"}) {
			t.Fatalf("unexpected order: %v", got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		opts := repository.ListOptions{Limit: 10, SortField: "age", Direction: repository.Desc}
		first, _ := repo.List(ctx, opts)
		for i := 0; i < 5; i++ {
			again, _ := repo.List(ctx, opts)
			if !reflect.DeepEqual(userIDs(first.Items), userIDs(again.Items)) {
				t.Fatalf("order changed between runs")
			}
		}
	})
}

func TestUserRepositoryListNullsFirst(t *testing.T) {
	repo := newTestUserRepo(t,
		testUser("u_2", "b@example.com", strPtr("Bee"), nil),
		testUser("u_1", "a@example.com", nil, nil),
		testUser("u_3", "c@example.com", strPtr("Ant"), nil),
	)
	ctx := context.Background()

	asc, err := repo.List(ctx, repository.ListOptions{Limit: 10, SortField: "name", Direction: repository.Asc})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := userIDs(asc.Items); !reflect.DeepEqual(got, []string{"u_1", "u_3", "u_2"}) {
		t.Fatalf("asc: unexpected order %v", got)
	}

	desc, err := repo.List(ctx, repository.ListOptions{Limit: 10, SortField: "name", Direction: repository.Desc})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := userIDs(desc.Items); !reflect.DeepEqual(got, []string{"u_1", "u_2", "u_3"}) {
		t.Fatalf("desc: unexpected order %v", got)
	}
}

func TestUserRepositoryReturnsCopies(t *testing.T) {
	repo := newTestUserRepo(t, testUser("u_1", "a@example.com", strPtr("A"), intPtr(1)))
	ctx := context.Background()

	one, _ := repo.GetByID(ctx, "u_1")
	if one == nil {
		t.Fatalf("seeded user missing")
	}
	one.Email = "mutated@example.com"
	*one.Name = "mutated"
	*one.Age = 99

	page, err := repo.List(ctx, repository.ListOptions{Limit: 10})
	if err != nil || len(page.Items) != 1 {
		t.Fatalf("List: %v, %+v", err, page)
	}
	*page.Items[0].Name = "mutated too"

	created, err := repo.Create(ctx, domain.User{Email: "b@example.com", Name: strPtr("B")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	*created.Name = "mutated"

	again, _ := repo.GetByID(ctx, "u_1")
	if again == nil {
		t.Fatalf("seeded user missing")
	}
	if again.Email != "a@example.com" || *again.Name != "A" || *again.Age != 1 {
		t.Fatalf("stored user changed through returned value: %+v", again)
	}
	b, _ := repo.GetByID(ctx, created.ID)
	if b == nil {
		t.Fatalf("created user %s missing", created.ID)
	}
	if *b.Name != "B" {
		t.Fatalf("created user changed through returned value: %+v", b)
	}
}

func TestUserRepositoryInputNotAliased(t *testing.T) {
	repo := newTestUserRepo(t)
	ctx := context.Background()

	name := "A"
	created, err := repo.Create(ctx, domain.User{Email: "a@example.com", Name: &name})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	name = "changed by caller"

	stored, _ := repo.GetByID(ctx, created.ID)
	if *stored.Name != "A" {
		t.Fatalf("stored name follows caller variable: %s", *stored.Name)
	}
}

func TestNewUserRepositoryRejectsDuplicateSeed(t *testing.T) {
	_, err := NewUserRepository(UserOptions{
		GenerateID: NewSequence("u_"),
		InitialUsers: []domain.User{
			testUser("x1", "User@Example.com", nil, nil),
			testUser("x2", "user@example.com", nil, nil),
		},
	})
	if !repository.IsCode(err, repository.CodeUniqueViolation) {
		t.Fatalf("expected unique-violation, got %v", err)
	}

	_, err = NewUserRepository(UserOptions{
		InitialUsers: []domain.User{
			testUser("x1", "a@example.com", nil, nil),
			testUser("x1", "b@example.com", nil, nil),
		},
	})
	if !repository.IsCode(err, repository.CodeInvalidInput) {
		t.Fatalf("expected invalid-input for duplicate ids, got %v", err)
	}

	_, err = NewUserRepository(UserOptions{
		InitialUsers: []domain.User{testUser("", "a@example.com", nil, nil)},
	})
	if !repository.IsCode(err, repository.CodeInvalidInput) {
		t.Fatalf("expected invalid-input for empty id, got %v", err)
	}
}

func TestUserRepositoryCreateSkipsSeededIDs(t *testing.T) {
	repo := newTestUserRepo(t,
		testUser("u_1", "a@example.com", nil, nil),
		testUser("u_2", "b@example.com", nil, nil),
	)
	ctx := context.Background()

	created, err := repo.Create(ctx, domain.User{Email: "c@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "u_3" {
		t.Fatalf("expected u_3, got %s", created.ID)
	}
	next, err := repo.Create(ctx, domain.User{Email: "d@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if next.ID != "u_4" {
		t.Fatalf("expected u_4, got %s", next.ID)
	}
}

func TestUserRepositoryStuckGenerator(t *testing.T) {
	repo, err := NewUserRepository(UserOptions{
		GenerateID:   func() string { return "fixed" },
		InitialUsers: []domain.User{testUser("fixed", "a@example.com", nil, nil)},
	})
	if err != nil {
		t.Fatalf("NewUserRepository: %v", err)
	}
	ctx := context.Background()

	_, err = repo.Create(ctx, domain.User{Email: "b@example.com"})
	if !repository.IsCode(err, repository.CodeUnknown) {
		t.Fatalf("expected unknown, got %v", err)
	}
	if u, _ := repo.GetByEmail(ctx, "b@example.com"); u != nil {
		t.Fatalf("failed create must not index the email")
	}
	if u, _ := repo.GetByID(ctx, "fixed"); u == nil || u.Email != "a@example.com" {
		t.Fatalf("seeded user changed: %+v", u)
	}
}
