package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/access-control-api/internal/application/access"
	"github.com/jhoicas/access-control-api/internal/application/dto"
)

// LocalCompanyID key de la empresa validada por RequireCompanyAccess.
const LocalCompanyID = "company_id"

// RequireCompanyAccess verifica que el principal tenga vínculo activo con la
// empresa indicada en el query param company_id. Debe usarse DESPUÉS de AuthMiddleware.
//
// Comportamiento:
//   - 400 si company_id falta o no es un entero positivo.
//   - 401 si no hay principal en el contexto.
//   - 403 si el principal no tiene acceso a la empresa.
func RequireCompanyAccess() fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID := int64(c.QueryInt("company_id", 0))
		if companyID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Code:    "VALIDATION",
				Message: "company_id es requerido",
			})
		}
		p := GetPrincipal(c)
		if p == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "principal no encontrado en el contexto",
			})
		}
		if err := access.RequireAccess(p, companyID); err != nil {
			return writeError(c, err)
		}
		c.Locals(LocalCompanyID, companyID)
		return c.Next()
	}
}

// GetCompanyID devuelve la empresa validada por RequireCompanyAccess (0 si no hay).
func GetCompanyID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(LocalCompanyID).(int64)
	return id
}
