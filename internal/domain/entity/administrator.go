package entity

import (
	"regexp"
	"strings"
	"time"

	"github.com/jhoicas/access-control-api/internal/domain"
)

// Valores de relleno para administradores invitados que aún no completan su registro.
const (
	PlaceholderFirstName = "pendiente"
	PlaceholderLastName  = "pendiente"
)

const (
	maxEmailLength    = 254
	maxUsernameLength = 254
	maxNameLength     = 255
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Administrator representa la identidad de un administrador. Las empresas a las
// que pertenece no cuelgan de la entidad: se consultan como filas Membership.
type Administrator struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string // bcrypt hash
	FirstName    string
	LastName     string
	RegisteredAt *time.Time // nil mientras el registro no se completa
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Registered informa si el administrador completó su registro.
func (a *Administrator) Registered() bool {
	return a.RegisteredAt != nil
}

// FullName nombre y apellido separados por espacio.
func (a *Administrator) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Register completa el registro con credenciales y nombres reales.
func (a *Administrator) Register(username, passwordHash, firstName, lastName string, at time.Time) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidateName("first name", firstName); err != nil {
		return err
	}
	if err := ValidateName("last name", lastName); err != nil {
		return err
	}
	if passwordHash == "" {
		return domain.Errorf(domain.KindInvalidInput, "password hash vacío")
	}
	a.Username = username
	a.PasswordHash = passwordHash
	a.FirstName = firstName
	a.LastName = lastName
	a.RegisteredAt = &at
	a.UpdatedAt = at
	return nil
}

// ValidateEmail comprueba formato y longitud del email.
func ValidateEmail(email string) error {
	switch {
	case email == "":
		return domain.Errorf(domain.KindInvalidInput, "el email es requerido")
	case len(email) > maxEmailLength:
		return domain.Errorf(domain.KindInvalidInput, "el email no puede superar %d caracteres", maxEmailLength)
	case !emailPattern.MatchString(email):
		return domain.Errorf(domain.KindInvalidInput, "el email no es válido")
	}
	return nil
}

// ValidateUsername comprueba que el username no esté vacío ni sea demasiado largo.
func ValidateUsername(username string) error {
	if username == "" {
		return domain.Errorf(domain.KindInvalidInput, "el username es requerido")
	}
	if len(username) > maxUsernameLength {
		return domain.Errorf(domain.KindInvalidInput, "el username no puede superar %d caracteres", maxUsernameLength)
	}
	return nil
}

// ValidateName valida nombre o apellido; field se usa en el mensaje.
func ValidateName(field, value string) error {
	if value == "" {
		return domain.Errorf(domain.KindInvalidInput, "%s es requerido", field)
	}
	if len(value) > maxNameLength {
		return domain.Errorf(domain.KindInvalidInput, "%s no puede superar %d caracteres", field, maxNameLength)
	}
	return nil
}
