package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/access-control-api/internal/application/dto"
	"github.com/jhoicas/access-control-api/internal/application/usecase"
)

// APIKeyHandler maneja las peticiones HTTP para API keys y scopes.
type APIKeyHandler struct {
	keys   *usecase.APIKeyUseCase
	scopes *usecase.ScopeUseCase
}

// NewAPIKeyHandler construye el handler inyectando los casos de uso.
func NewAPIKeyHandler(keys *usecase.APIKeyUseCase, scopes *usecase.ScopeUseCase) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, scopes: scopes}
}

// Create godoc
// @Summary      Crear API key (el secreto solo se devuelve aquí)
// @Tags         api-keys
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.CreateAPIKeyRequest  true  "company_id, name, description, enabled, scopes"
// @Success      201   {object}  dto.CreateAPIKeyResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/api-keys [post]
func (h *APIKeyHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateAPIKeyRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := in.Validate(); err != nil {
		return writeError(c, err)
	}
	out, err := h.keys.Create(c.UserContext(), GetPrincipal(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar API keys de una empresa
// @Tags         api-keys
// @Produce      json
// @Security     BearerAuth
// @Param        company_id  query  int  true   "ID de la empresa"
// @Param        limit       query  int  false  "Límite"  default(20)
// @Param        offset      query  int  false  "Offset"  default(0)
// @Success      200  {object}  dto.APIKeyListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/api-keys [get]
func (h *APIKeyHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	if err := page.Validate(); err != nil {
		return writeError(c, err)
	}
	out, err := h.keys.ListByCompany(c.UserContext(), GetPrincipal(c), GetCompanyID(c), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar nombre, estado y scopes de una API key
// @Tags         api-keys
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int                      true  "ID de la API key"
// @Param        body  body  dto.UpdateAPIKeyRequest  true  "company_id, name, description, enabled, scopes"
// @Success      200   {object}  dto.APIKeyResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/api-keys/{id} [put]
func (h *APIKeyHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id debe ser un entero positivo"})
	}
	var in dto.UpdateAPIKeyRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := in.Validate(); err != nil {
		return writeError(c, err)
	}
	out, err := h.keys.Update(c.UserContext(), GetPrincipal(c), int64(id), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar API keys de una empresa
// @Tags         api-keys
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.DeleteAPIKeysRequest  true  "company_id, api_key_ids"
// @Success      200   {object}  dto.DeleteAPIKeysResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/api-keys [delete]
func (h *APIKeyHandler) Delete(c *fiber.Ctx) error {
	var in dto.DeleteAPIKeysRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := in.Validate(); err != nil {
		return writeError(c, err)
	}
	n, err := h.keys.Delete(c.UserContext(), GetPrincipal(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.DeleteAPIKeysResponse{Deleted: n})
}

// ListScopes godoc
// @Summary      Listar scopes habilitados
// @Tags         scopes
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.ScopeListResponse
// @Router       /api/scopes [get]
func (h *APIKeyHandler) ListScopes(c *fiber.Ctx) error {
	out, err := h.scopes.List(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
