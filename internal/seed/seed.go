// Package seed carga usuarios iniciales desde un archivo YAML.
package seed

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"authkit/internal/domain"
)

// File es el formato del archivo de seed:
//
//	users:
//	  - id: u_1
//	    email: ada@example.com
//	    name: Ada
//	    age: 36
type File struct {
	Users []domain.User `yaml:"users"`
}

// LoadUsers lee path y devuelve los usuarios. Un path vacio no es error.
// Los usuarios sin created_at reciben now.
func LoadUsers(path string, now time.Time) ([]domain.User, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseUsers(raw, now)
}

func ParseUsers(raw []byte, now time.Time) ([]domain.User, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i := range f.Users {
		if f.Users[i].CreatedAt.IsZero() {
			f.Users[i].CreatedAt = now.UTC()
		}
	}
	return f.Users, nil
}
