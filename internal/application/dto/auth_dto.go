package dto

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// LoginRequest credenciales: username o email más contraseña.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate valida el payload.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 254)),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginResponse par de tokens más el administrador autenticado.
type LoginResponse struct {
	AccessToken   string                `json:"access_token"`
	RefreshToken  string                `json:"refresh_token"`
	TokenType     string                `json:"token_type"`
	ExpiresIn     int64                 `json:"expires_in"`
	Administrator AdministratorResponse `json:"administrator"`
	CompanyIDs    []int64               `json:"company_ids"`
}

// RefreshTokenRequest entrada para renovar el par de tokens.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate valida el payload.
func (r RefreshTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// PasswordResetRequest solicita el correo de restablecimiento.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// Validate valida el payload.
func (r PasswordResetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
	)
}

// ResetPasswordRequest fija una nueva contraseña con el token del correo.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Validate valida el payload.
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
	)
}
