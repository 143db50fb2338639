package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/walkies/internal/adapters/auth"
	"github.com/samirrijal/walkies/internal/core/domain"
)

// RequireAuth verifies the bearer token and stores its claims on the user
// context, where auth.State and the handlers pick them up.
func RequireAuth(cfg auth.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.Parse(auth.BearerToken(c.Get(fiber.HeaderAuthorization)), cfg)
		if err != nil {
			if errors.Is(err, auth.ErrMissingToken) {
				return errUnauthorized(c, "missing bearer token")
			}
			return errUnauthorized(c, "invalid bearer token")
		}
		c.SetUserContext(auth.WithClaims(c.UserContext(), claims))
		withLogAttrs(c, "user_id", claims.Subject)
		return c.Next()
	}
}

// OptionalAuth stores claims when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalAuth(cfg auth.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims, err := auth.Parse(auth.BearerToken(c.Get(fiber.HeaderAuthorization)), cfg); err == nil {
			c.SetUserContext(auth.WithClaims(c.UserContext(), claims))
			withLogAttrs(c, "user_id", claims.Subject)
		}
		return c.Next()
	}
}

// RequireFlow lets the request through only when check allows it.
func RequireFlow(check func(context.Context) domain.RouteProtectionResult) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch res := check(c.UserContext()); res {
		case domain.Allowed:
			return c.Next()
		case domain.NotAuthenticated:
			return errUnauthorized(c, "authentication required")
		case domain.FeatureDisabled:
			return newError(c, fiber.StatusNotFound, "feature_disabled", "this flow is not available")
		case domain.WrongRole:
			return newError(c, fiber.StatusForbidden, "wrong_role", "this flow is not available for your role")
		default:
			return errForbidden(c, res.String())
		}
	}
}

// AccessCheckHandler reports the guard result for a flow without enforcing it.
func AccessCheckHandler(check func(context.Context) domain.RouteProtectionResult) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := check(c.UserContext())
		return c.JSON(fiber.Map{
			"result":  res.String(),
			"allowed": res == domain.Allowed,
		})
	}
}

func callerID(c *fiber.Ctx) string {
	id, _ := auth.UserID(c.UserContext())
	return id
}
