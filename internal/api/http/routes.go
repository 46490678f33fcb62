package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gpellegrini/irrigo/internal/engine"
	"github.com/gpellegrini/irrigo/internal/model"
)

var validate = validator.New()

// Engine is the subset of engine operations the HTTP surface drives.
type Engine interface {
	Zones() []model.ZoneSnapshot
	Site() engine.SiteSnapshot
	StartSession() error
	CancelSession()
	StartZone(zoneID int, minutes float64) error
	StopZone(zoneID int) error
	Recalculate()
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, eng Engine) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")

	v1.Get("/zones", func(c *fiber.Ctx) error {
		return c.JSON(eng.Zones())
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(eng.Site())
	})

	v1.Post("/start", func(c *fiber.Ctx) error {
		if err := eng.StartSession(); err != nil {
			return commandError(err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started"})
	})

	v1.Post("/stop", func(c *fiber.Ctx) error {
		eng.CancelSession()
		return c.JSON(fiber.Map{"status": "stopped"})
	})

	v1.Post("/zones/:id/start", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid zone id")
		}

		var req startZoneRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := eng.StartZone(id, req.Minutes); err != nil {
			return commandError(err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started", "zone": id})
	})

	v1.Post("/zones/:id/stop", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid zone id")
		}
		if err := eng.StopZone(id); err != nil {
			return commandError(err)
		}
		return c.JSON(fiber.Map{"status": "stopped", "zone": id})
	})

	v1.Post("/recalculate", func(c *fiber.Ctx) error {
		eng.Recalculate()
		return c.JSON(fiber.Map{"status": "recalculated"})
	})
}

// startZoneRequest is the body of a manual zone start.
type startZoneRequest struct {
	Minutes float64 `json:"minutes" validate:"required,gt=0"`
}

func commandError(err error) error {
	switch {
	case errors.Is(err, engine.ErrZoneNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrSessionActive):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
