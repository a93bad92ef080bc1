package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// CreateAPIKeyRequest entrada para crear una API key de la empresa.
type CreateAPIKeyRequest struct {
	CompanyID   int64    `json:"company_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Enabled     *bool    `json:"enabled"`
	Scopes      []string `json:"scopes"`
}

// Validate valida el payload. Enabled omitido equivale a true.
func (r CreateAPIKeyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CompanyID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Description, validation.Length(0, 255)),
		validation.Field(&r.Scopes, validation.Length(0, 50)),
	)
}

// UpdateAPIKeyRequest reemplaza nombre, descripción, estado y scopes de una key.
type UpdateAPIKeyRequest struct {
	CompanyID   int64    `json:"company_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Enabled     *bool    `json:"enabled"`
	Scopes      []string `json:"scopes"`
}

// Validate valida el payload.
func (r UpdateAPIKeyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CompanyID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Description, validation.Length(0, 255)),
		validation.Field(&r.Enabled, validation.NotNil),
		validation.Field(&r.Scopes, validation.Length(0, 50)),
	)
}

// DeleteAPIKeysRequest borra varias keys de una empresa.
type DeleteAPIKeysRequest struct {
	CompanyID int64   `json:"company_id"`
	APIKeyIDs []int64 `json:"api_key_ids"`
}

// Validate valida el payload.
func (r DeleteAPIKeysRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CompanyID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.APIKeyIDs, validation.Required, validation.Length(1, 100)),
	)
}

// APIKeyResponse salida de una API key; nunca incluye el secreto.
type APIKeyResponse struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	ClientID    string    `json:"client_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Enabled     bool      `json:"enabled"`
	Scopes      []string  `json:"scopes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateAPIKeyResponse key recién creada con el secreto en claro. Es la única vez
// que se entrega.
type CreateAPIKeyResponse struct {
	APIKeyResponse
	ClientSecret string `json:"client_secret"`
}

// APIKeyListResponse listado paginado de keys de una empresa.
type APIKeyListResponse struct {
	Items []APIKeyResponse `json:"items"`
	Page  PageResponse     `json:"page"`
}

// DeleteAPIKeysResponse cantidad de keys eliminadas.
type DeleteAPIKeysResponse struct {
	Deleted int `json:"deleted"`
}

// ScopeResponse scope disponible para asignar a una key.
type ScopeResponse struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ScopeListResponse catálogo de scopes habilitados.
type ScopeListResponse struct {
	Items []ScopeResponse `json:"items"`
}
