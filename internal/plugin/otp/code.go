package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

const codeLength = 6

// GenerateCode devuelve un codigo numerico de 6 digitos.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashCode returns "salt:hash" with a random 16-byte salt.
func HashCode(code string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	return saltStr + ":" + digest(saltStr, code), nil
}

// VerifyCode compares code against a HashCode result in constant time.
func VerifyCode(code, stored string) bool {
	saltStr, expected, ok := strings.Cut(stored, ":")
	if !ok || saltStr == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(digest(saltStr, code)), []byte(expected)) == 1
}

func digest(salt, code string) string {
	sum := sha256.Sum256([]byte(salt + ":" + code))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func isValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
