package entity

import (
	"strings"
	"time"

	"github.com/jhoicas/access-control-api/internal/domain"
)

// Role rol de un administrador dentro de una empresa.
type Role string

// Roles válidos (deben coincidir con el CHECK de la tabla administrator_companies).
const (
	RoleOwner         Role = "OWNER"
	RoleAdministrator Role = "ADMINISTRATOR"
)

// ParseRole interpreta el rol sin distinguir mayúsculas. Devuelve RoleInvalid si no es reconocido.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleOwner, RoleAdministrator:
		return r, nil
	}
	return "", domain.Errorf(domain.KindRoleInvalid, "rol inválido: %q", s)
}

// MembershipKey identidad compuesta del vínculo administrador-empresa.
type MembershipKey struct {
	AdministratorID int64
	CompanyID       int64
}

// Membership vínculo administrador-empresa.
//
//	Invitado  (accepted=false)
//	Activo    (accepted=true, enabled=true)
//	Desactivado (accepted=true, enabled=false)
type Membership struct {
	AdministratorID int64
	CompanyID       int64
	Role            Role
	Enabled         bool
	Accepted        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Key devuelve la identidad compuesta.
func (m *Membership) Key() MembershipKey {
	return MembershipKey{AdministratorID: m.AdministratorID, CompanyID: m.CompanyID}
}

// Active un vínculo cuenta como administrador activo si está habilitado y aceptado.
func (m *Membership) Active() bool {
	return m.Enabled && m.Accepted
}

// MembershipView vínculo junto con los datos del administrador, para listados.
type MembershipView struct {
	Membership
	Email      string
	Username   string
	FirstName  string
	LastName   string
	Registered bool
}
