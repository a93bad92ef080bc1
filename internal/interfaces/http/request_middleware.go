package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/jhoicas/access-control-api/pkg/ids"
	"github.com/jhoicas/access-control-api/pkg/logger"
	"github.com/jhoicas/access-control-api/pkg/metrics"
)

// Cabecera y locals del request.
const (
	HeaderRequestID = "X-Request-ID"
	LocalRequestID  = "request_id"
	LocalLogger     = "logger"
)

// RequestMiddleware asigna el request ID (respeta uno entrante si es un ULID válido),
// deja un logger con ese ID en Locals, registra la petición y alimenta las métricas HTTP.
func RequestMiddleware(log *logger.Logger, m *metrics.Metrics) fiber.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id := c.Get(HeaderRequestID)
		if !ids.Valid(id) {
			id = ids.New()
		}
		c.Set(HeaderRequestID, id)
		c.Locals(LocalRequestID, id)
		reqLog := log.With().Str("request_id", id).Logger()
		c.Locals(LocalLogger, &reqLog)

		m.InFlight(1)
		defer m.InFlight(-1)

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		elapsed := time.Since(start)
		m.ObserveRequest(c.Method(), c.Route().Path, status, elapsed)

		ev := reqLog.Info()
		if status >= fiber.StatusInternalServerError {
			ev = reqLog.Error()
		} else if status >= fiber.StatusBadRequest {
			ev = reqLog.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("elapsed", elapsed).
			Str("ip", c.IP()).
			Msg("http request")
		return nil
	}
}

// GetRequestID devuelve el request ID asignado por RequestMiddleware.
func GetRequestID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalRequestID).(string)
	return s
}

func requestLogger(c *fiber.Ctx) *zerolog.Logger {
	if l, ok := c.Locals(LocalLogger).(*zerolog.Logger); ok && l != nil {
		return l
	}
	return &zlog.Logger
}
