package middleware

import (
	"github.com/gofiber/fiber/v2"

	"prodcat/internal/apperrors"
	"prodcat/internal/auth"
	"prodcat/internal/models"
)

// RoleContextKey is the Locals key under which the resolved role is stored
// for downstream handlers.
const RoleContextKey = "role"

// RequireRoles is a Fiber middleware that resolves the caller's role and
// rejects the request unless it is one of the allowed roles. A missing or
// unresolvable identity yields 401, any resolved role outside the allowed
// set 403; the guarded handler never runs in either case.
func RequireRoles(resolver auth.RoleResolver, allowed ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, err := resolver.ResolveRole(c)
		if err != nil {
			return apperrors.Unauthorized(err.Error())
		}

		for _, a := range allowed {
			if role == a {
				c.Locals(RoleContextKey, role)
				return c.Next()
			}
		}
		return apperrors.Forbidden("Admin role required for this operation")
	}
}

// RoleFromContext returns the role stored by RequireRoles, or the empty
// role when the middleware did not run.
func RoleFromContext(c *fiber.Ctx) models.Role {
	role, _ := c.Locals(RoleContextKey).(models.Role)
	return role
}
