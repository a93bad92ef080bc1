package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// InviteAdministratorRequest entrada para invitar un administrador a una empresa.
type InviteAdministratorRequest struct {
	Email     string `json:"email"`
	CompanyID int64  `json:"company_id"`
	Role      string `json:"role"`
}

// Validate valida el payload.
func (r InviteAdministratorRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.CompanyID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Role, validation.Required),
	)
}

// AcceptInviteRequest token recibido en el enlace de invitación.
type AcceptInviteRequest struct {
	Token string `json:"token"`
}

// Validate valida el payload.
func (r AcceptInviteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

// RegisterFromInviteRequest completa el registro de un administrador invitado.
type RegisterFromInviteRequest struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Validate valida la forma del payload; la fortaleza de la contraseña la decide la política.
func (r RegisterFromInviteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Username, validation.Required, validation.Length(1, 254)),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 255)),
	)
}

// UpdateMembershipRequest cambia estado y rol del vínculo con una empresa.
type UpdateMembershipRequest struct {
	CompanyID int64  `json:"company_id"`
	Enabled   *bool  `json:"enabled"`
	Role      string `json:"role"`
}

// Validate valida el payload. Role vacío conserva el rol actual.
func (r UpdateMembershipRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CompanyID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Enabled, validation.NotNil),
	)
}

// DeleteMembershipsRequest desvincula varios administradores de una empresa.
type DeleteMembershipsRequest struct {
	CompanyID        int64   `json:"company_id"`
	AdministratorIDs []int64 `json:"administrator_ids"`
}

// Validate valida el payload.
func (r DeleteMembershipsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CompanyID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.AdministratorIDs, validation.Required, validation.Length(1, 100)),
	)
}

// AdministratorResponse salida de un administrador (sin hash).
type AdministratorResponse struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Registered   bool       `json:"registered"`
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
}

// MembershipResponse vínculo administrador-empresa con los datos del administrador.
type MembershipResponse struct {
	AdministratorID int64     `json:"administrator_id"`
	CompanyID       int64     `json:"company_id"`
	Email           string    `json:"email"`
	Username        string    `json:"username,omitempty"`
	FirstName       string    `json:"first_name,omitempty"`
	LastName        string    `json:"last_name,omitempty"`
	Registered      bool      `json:"registered"`
	Role            string    `json:"role"`
	Enabled         bool      `json:"enabled"`
	Accepted        bool      `json:"accepted"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MembershipListResponse listado paginado de administradores de una empresa.
type MembershipListResponse struct {
	Items []MembershipResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}

// DeleteMembershipsResponse cantidad de vínculos eliminados.
type DeleteMembershipsResponse struct {
	Deleted int `json:"deleted"`
}
