package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/access-control-api/internal/application/access"
	"github.com/jhoicas/access-control-api/internal/application/dto"
	"github.com/jhoicas/access-control-api/internal/application/membership"
	"github.com/jhoicas/access-control-api/internal/application/usecase"
)

// AdministratorHandler maneja invitaciones y vínculos administrador-empresa.
type AdministratorHandler struct {
	workflow *membership.Workflow
	uc       *usecase.AdministratorUseCase
}

// NewAdministratorHandler construye el handler.
func NewAdministratorHandler(workflow *membership.Workflow, uc *usecase.AdministratorUseCase) *AdministratorHandler {
	return &AdministratorHandler{workflow: workflow, uc: uc}
}

// Invite godoc
// @Summary      Invitar administrador a una empresa
// @Tags         administrators
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.InviteAdministratorRequest  true  "email, company_id, role"
// @Success      201   {object}  dto.MembershipResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/administrators/invite [post]
func (h *AdministratorHandler) Invite(c *fiber.Ctx) error {
	var in dto.InviteAdministratorRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := in.Validate(); err != nil {
		return writeError(c, err)
	}
	if err := access.RequireAccess(GetPrincipal(c), in.CompanyID); err != nil {
		return writeError(c, err)
	}
	out, err := h.workflow.Invite(c.UserContext(), membership.InviteInput{
		Email:     in.Email,
		CompanyID: in.CompanyID,
		Role:      in.Role,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// AcceptInvite godoc
// @Summary      Aceptar invitación (administrador ya registrado)
// @Tags         administrators
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AcceptInviteRequest  true  "token"
// @Success      200   {object}  dto.MembershipResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/administrators/accept-invite [post]
func (h *AdministratorHandler) AcceptInvite(c *fiber.Ctx) error {
	var in dto.AcceptInviteRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := in.Validate(); err != nil {
		return writeError(c, err)
	}
	out, err := h.workflow.AcceptInvite(c.UserContext(), in.Token)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RegisterFromInvite godoc
// @Summary      Completar registro desde una invitación
// @Tags         administrators
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterFromInviteRequest  true  "token, username, password, first_name, last_name"
// @Success      200   {object}  dto.MembershipResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/administrators/register-from-invite [post]
func (h *AdministratorHandler) RegisterFromInvite(c *fiber.Ctx) error {
	var in dto.RegisterFromInviteRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := in.Validate(); err != nil {
		return writeError(c, err)
	}
	out, err := h.workflow.RegisterAndAccept(c.UserContext(), membership.RegisterInput{
		Token:     in.Token,
		Username:  in.Username,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar administradores de una empresa
// @Tags         administrators
// @Produce      json
// @Security     BearerAuth
// @Param        company_id  query  int  true   "ID de la empresa"
// @Param        limit       query  int  false  "Límite"  default(20)
// @Param        offset      query  int  false  "Offset"  default(0)
// @Success      200  {object}  dto.MembershipListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/administrators [get]
func (h *AdministratorHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	if err := page.Validate(); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListByCompany(c.UserContext(), GetPrincipal(c), GetCompanyID(c), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Habilitar, deshabilitar o cambiar el rol de un vínculo
// @Tags         administrators
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int                          true  "ID del administrador"
// @Param        body  body  dto.UpdateMembershipRequest  true  "company_id, enabled, role"
// @Success      200   {object}  dto.MembershipResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/administrators/{id} [put]
func (h *AdministratorHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id debe ser un entero positivo"})
	}
	var in dto.UpdateMembershipRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := in.Validate(); err != nil {
		return writeError(c, err)
	}
	if err := access.RequireAccess(GetPrincipal(c), in.CompanyID); err != nil {
		return writeError(c, err)
	}
	out, err := h.workflow.UpdateMembership(c.UserContext(), membership.UpdateInput{
		AdministratorID: int64(id),
		CompanyID:       in.CompanyID,
		Enabled:         *in.Enabled,
		Role:            in.Role,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Desvincular administradores de una empresa
// @Tags         administrators
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.DeleteMembershipsRequest  true  "company_id, administrator_ids"
// @Success      200   {object}  dto.DeleteMembershipsResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/administrators [delete]
func (h *AdministratorHandler) Delete(c *fiber.Ctx) error {
	var in dto.DeleteMembershipsRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := in.Validate(); err != nil {
		return writeError(c, err)
	}
	if err := access.RequireAccess(GetPrincipal(c), in.CompanyID); err != nil {
		return writeError(c, err)
	}
	n, err := h.workflow.DeleteMemberships(c.UserContext(), in.AdministratorIDs, in.CompanyID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.DeleteMembershipsResponse{Deleted: n})
}
