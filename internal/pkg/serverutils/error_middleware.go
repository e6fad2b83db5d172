package serverutils

import (
	"encoding/json"
	"errors"

	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a domain error to the HTTP status the API reports it with.
func StatusFor(err error) int {
	var (
		fiberErr   *fiber.Error
		validation *ValidationError
		rejected   *model.TabOperationRejected
		active     *model.AlreadyActiveError
		regenerate *model.RegenerateTargetInvalid
		history    *model.HistoryFetchError
		analysis   *model.AnalysisError
		syntax     *json.SyntaxError
		typeErr    *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &syntax), errors.As(err, &typeErr):
		return fiber.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &regenerate),
		errors.Is(err, model.ErrNothingToSend), errors.Is(err, model.ErrInvalidSubject):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &rejected), errors.As(err, &active),
		errors.Is(err, model.ErrNoActiveSession), errors.Is(err, model.ErrNoPendingClose):
		return fiber.StatusConflict
	case errors.As(err, &history), errors.As(err, &analysis):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		message := err.Error()
		if code >= fiber.StatusInternalServerError && code != fiber.StatusBadGateway {
			log.Error("HTTP", "Unhandled error", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"error":  err,
			})
			message = "internal server error"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
