// Package ids genera identificadores ordenables (ULID) para trazar peticiones.
package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New devuelve un ULID nuevo; dentro del mismo milisegundo los valores son crecientes.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Valid informa si s es un ULID bien formado. Se usa para aceptar X-Request-ID entrantes.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
