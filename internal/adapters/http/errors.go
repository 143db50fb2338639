package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/walkies/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnauthorized, "unauthorized", msg)
}

func errForbidden(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusForbidden, "forbidden", msg)
}

// writeDomainError maps use case errors onto API errors. Anything it does not
// recognise is logged and reported as a 500 without leaking the cause.
func writeDomainError(c *fiber.Ctx, err error) error {
	var (
		ve  *domain.ValidationError
		nfe *domain.NotFoundError
		ite *domain.InvalidTransitionError
	)
	switch {
	case errors.As(err, &ve):
		return errBadRequest(c, ve.Error())
	case errors.As(err, &nfe):
		return errNotFound(c, nfe.Error())
	case errors.As(err, &ite):
		return newError(c, fiber.StatusConflict, "invalid_transition", ite.Error())
	case errors.Is(err, domain.ErrRouteUnavailable):
		return newError(c, fiber.StatusBadGateway, "route_unavailable", "walking route is unavailable")
	}
	LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return errInternal(c, "internal error")
}
