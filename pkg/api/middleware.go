package api

import (
	"errors"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/ethpandaops/parcelsight/pkg/engine"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/sirupsen/logrus"
)

// setupMiddleware configures global middleware for the Fiber app
func setupMiddleware(app *fiber.App, log logrus.FieldLogger) {
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestLogger(log))

	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}))
}

func requestLogger(log logrus.FieldLogger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		log.WithFields(logrus.Fields{
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Debug("Handled request")

		return err
	}
}

// statusCode maps engine errors to HTTP status codes
func statusCode(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownParcel):
		return fiber.StatusNotFound
	case errors.Is(err, analysis.ErrEmptyDataset), errors.Is(err, analysis.ErrDataIntegrity):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler provides consistent error responses
func errorHandler(c fiber.Ctx, err error) error {
	code := statusCode(err)
	message := err.Error()

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	body := fiber.Map{
		"error": message,
		"code":  code,
	}

	var aerr *analysis.Error
	if errors.As(err, &aerr) {
		body["stage"] = aerr.Stage
		if aerr.ParcelID != "" {
			body["parcelle_id"] = aerr.ParcelID
		}
	}

	return c.Status(code).JSON(body)
}
