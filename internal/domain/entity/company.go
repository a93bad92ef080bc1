package entity

import (
	"time"

	"github.com/jhoicas/access-control-api/internal/domain"
)

// Company representa una organización/tenant del sistema.
type Company struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// ValidateCompanyName exige un nombre no vacío de hasta 255 caracteres.
func ValidateCompanyName(name string) error {
	if name == "" {
		return domain.Errorf(domain.KindInvalidInput, "el nombre de la empresa es requerido")
	}
	if len(name) > maxNameLength {
		return domain.Errorf(domain.KindInvalidInput, "el nombre de la empresa no puede superar %d caracteres", maxNameLength)
	}
	return nil
}
