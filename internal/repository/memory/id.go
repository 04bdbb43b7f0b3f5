package memory

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator devuelve un identificador nuevo en cada llamada.
type IDGenerator func() string

// NewSequence returns a monotonically increasing generator: prefix+"1",
// prefix+"2", ... Each call to NewSequence starts a fresh sequence.
func NewSequence(prefix string) IDGenerator {
	var n atomic.Uint64
	return func() string {
		return prefix + strconv.FormatUint(n.Add(1), 10)
	}
}

// UUIDGenerator genera UUIDv4 en texto.
func UUIDGenerator() string {
	return uuid.NewString()
}
