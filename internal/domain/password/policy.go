// Package password contiene la política de contraseñas de administradores.
package password

import (
	"unicode/utf8"

	"github.com/jhoicas/access-control-api/internal/domain"
)

// MinLength longitud mínima aceptada.
const MinLength = 12

type rule struct {
	check func(string) bool
	msg   string
}

// Las reglas se evalúan en orden y se devuelve solo la primera que falla.
var rules = []rule{
	{func(p string) bool { return utf8.RuneCountInString(p) >= MinLength }, "la contraseña debe tener al menos 12 caracteres"},
	{func(p string) bool { return containsRune(p, isASCIIDigit) }, "la contraseña debe contener al menos un número"},
	{func(p string) bool { return containsRune(p, isASCIIUpper) }, "la contraseña debe contener al menos una letra mayúscula"},
}

// Policy valida contraseñas candidatas.
type Policy struct{}

// NewPolicy construye la política estándar.
func NewPolicy() Policy { return Policy{} }

// Validate devuelve un error WeakPassword con la primera regla incumplida, o nil.
func (Policy) Validate(password string) error {
	for _, r := range rules {
		if !r.check(password) {
			return domain.Errorf(domain.KindWeakPassword, "%s", r.msg)
		}
	}
	return nil
}

func containsRune(s string, pred func(rune) bool) bool {
	for _, r := range s {
		if pred(r) {
			return true
		}
	}
	return false
}

// Solo cuentan dígitos y mayúsculas ASCII.
func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
