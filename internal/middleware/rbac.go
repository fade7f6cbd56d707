package middleware

import (
	"net/http"

	"reliefledger/internal/common"
	"reliefledger/internal/models"

	"github.com/labstack/echo/v4"
)

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...models.CallerRole) echo.MiddlewareFunc {
	allowed := make(map[models.CallerRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := common.GetCallerFromContext(c.Request().Context())
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			if !allowed[caller.Role] {
				return c.JSON(http.StatusForbidden, common.CreateErrorResponse("FORBIDDEN", "Insufficient permissions", nil))
			}

			return next(c)
		}
	}
}
