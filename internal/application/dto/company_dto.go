package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// CreateCompanyRequest entrada para crear una empresa; el creador queda como OWNER.
type CreateCompanyRequest struct {
	Name string `json:"name"`
}

// Validate valida el payload.
func (r CreateCompanyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

// CompanyResponse salida de una empresa.
type CompanyResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CompanyListResponse lista de empresas del principal.
type CompanyListResponse struct {
	Items []CompanyResponse `json:"items"`
}
