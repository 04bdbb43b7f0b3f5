package seed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"authkit/internal/repository"
	"authkit/internal/repository/memory"
)

const sample = `
users:
  - id: u_1
    email: ada@example.com
    name: Ada
    age: 36
  - id: u_2
    email: bob@example.com
    created_at: 2024-01-02T03:04:05Z
    email_verified_at: 2024-01-03T00:00:00Z
`

func TestParseUsers(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	users, err := ParseUsers([]byte(sample), now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	ada := users[0]
	if ada.ID != "u_1" || ada.Name == nil || *ada.Name != "Ada" || ada.Age == nil || *ada.Age != 36 {
		t.Fatalf("unexpected first user %+v", ada)
	}
	if !ada.CreatedAt.Equal(now) {
		t.Fatalf("expected default created_at, got %v", ada.CreatedAt)
	}
	bob := users[1]
	if bob.Name != nil || bob.Age != nil || bob.EmailVerifiedAt == nil {
		t.Fatalf("unexpected second user %+v", bob)
	}
	if bob.CreatedAt.Year() != 2024 {
		t.Fatalf("expected explicit created_at, got %v", bob.CreatedAt)
	}
}

func TestParseUsersInvalidYAML(t *testing.T) {
	if _, err := ParseUsers([]byte("users: [::"), time.Now()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadUsers(t *testing.T) {
	users, err := LoadUsers("", time.Now())
	if err != nil || users != nil {
		t.Fatalf("empty path should be a no-op, got %v, %v", users, err)
	}

	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	users, err = LoadUsers(path, time.Now())
	if err != nil || len(users) != 2 {
		t.Fatalf("load: %v, %v", users, err)
	}

	if _, err := LoadUsers(filepath.Join(t.TempDir(), "missing.yaml"), time.Now()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSeedDuplicatesRejectedByRepository(t *testing.T) {
	users, err := ParseUsers([]byte(`
users:
  - id: u_1
    email: ada@example.com
  - id: u_2
    email: ADA@example.com
`), time.Now())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = memory.NewUserRepository(memory.UserOptions{InitialUsers: users})
	if !repository.IsCode(err, repository.CodeUniqueViolation) {
		t.Fatalf("expected unique-violation for duplicate seed emails, got %v", err)
	}
}
