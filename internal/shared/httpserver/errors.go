package httpserver

import (
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// StatusFor maps an error kind to the HTTP status returned to clients.
func StatusFor(err error) int {
	switch errkind.Of(err) {
	case errkind.ErrNotFound:
		return fiber.StatusNotFound
	case errkind.ErrInvalidArgument:
		return fiber.StatusBadRequest
	case errkind.ErrStateConflict:
		return fiber.StatusConflict
	case errkind.ErrValueTooLow:
		return fiber.StatusUnprocessableEntity
	case errkind.ErrTransferFailed:
		return fiber.StatusPaymentRequired
	case errkind.ErrUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// WriteError sends err as an ErrorResponse with the mapped status.
func WriteError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	if kind := errkind.Of(err); kind != nil {
		resp.Kind = kind.Error()
	}
	if status == fiber.StatusInternalServerError {
		log.Error("Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(resp)
}

// BadRequest rejects a malformed request before it reaches the application layer.
func BadRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg, Kind: errkind.ErrInvalidArgument.Error()})
}
