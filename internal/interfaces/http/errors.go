package http

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/access-control-api/internal/application/dto"
	"github.com/jhoicas/access-control-api/internal/domain"
)

type errorStatus struct {
	status int
	code   string
}

var kindStatus = map[domain.Kind]errorStatus{
	domain.KindTokenInvalid:      {fiber.StatusUnauthorized, "TOKEN_INVALID"},
	domain.KindTokenTypeMismatch: {fiber.StatusUnauthorized, "TOKEN_TYPE_MISMATCH"},
	domain.KindUnauthorized:      {fiber.StatusUnauthorized, "UNAUTHORIZED"},
	domain.KindForbidden:         {fiber.StatusForbidden, "FORBIDDEN"},
	domain.KindNotFound:          {fiber.StatusNotFound, "NOT_FOUND"},
	domain.KindAlreadyLinked:     {fiber.StatusConflict, "ALREADY_LINKED"},
	domain.KindLastActiveAdmin:   {fiber.StatusConflict, "LAST_ACTIVE_ADMIN"},
	domain.KindConflict:          {fiber.StatusConflict, "CONFLICT"},
	domain.KindInvalidState:      {fiber.StatusConflict, "INVALID_STATE"},
	domain.KindRoleInvalid:       {fiber.StatusBadRequest, "ROLE_INVALID"},
	domain.KindWeakPassword:      {fiber.StatusBadRequest, "WEAK_PASSWORD"},
	domain.KindInvalidInput:      {fiber.StatusBadRequest, "VALIDATION"},
	domain.KindMailDelivery:      {fiber.StatusBadGateway, "MAIL_DELIVERY_FAILED"},
}

// writeError traduce err a la respuesta HTTP. Los errores sin Kind conocido
// se registran con detalle y salen como 500 con mensaje genérico.
func writeError(c *fiber.Ctx, err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: verrs.Error()})
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		if st, ok := kindStatus[derr.Kind]; ok {
			msg := derr.Msg
			if msg == "" {
				msg = derr.Kind.String()
			}
			if derr.Kind == domain.KindMailDelivery && derr.Err != nil {
				requestLogger(c).Warn().Err(derr.Err).Msg("envío de correo fallido")
			}
			return c.Status(st.status).JSON(dto.ErrorResponse{Code: st.code, Message: msg})
		}
	}
	requestLogger(c).Error().Err(err).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// ErrorHandler manejador de errores de la app Fiber: errores propios de Fiber
// (404 de ruta, 405) conservan su estado; el resto pasa por writeError.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code := "HTTP_ERROR"
		switch ferr.Code {
		case fiber.StatusNotFound:
			code = "NOT_FOUND"
		case fiber.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case fiber.StatusBadRequest:
			code = "BAD_REQUEST"
		}
		return c.Status(ferr.Code).JSON(dto.ErrorResponse{Code: code, Message: ferr.Message})
	}
	return writeError(c, err)
}
