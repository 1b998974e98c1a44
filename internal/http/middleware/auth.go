package middleware

import (
	"github.com/gofiber/fiber/v2"
)

const (
	// OwnerIDHeader is set by the authentication gateway in front of this
	// service once the caller's credential has been verified.
	OwnerIDHeader = "X-User-ID"
	// OwnerIDLocalKey is the key used to store the owner id in Fiber's
	// context locals.
	OwnerIDLocalKey = "owner_id"
)

// Auth extracts the authenticated owner id injected by the upstream
// gateway. Authentication itself happens outside this service; here a
// missing owner id is simply rejected before any storage or metadata
// access can run.
func Auth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := c.Get(OwnerIDHeader)
		if owner == "" {
			return fiber.ErrUnauthorized
		}
		c.Locals(OwnerIDLocalKey, owner)
		return c.Next()
	}
}

// OwnerID returns the authenticated owner id stored by Auth.
func OwnerID(c *fiber.Ctx) string {
	if v, ok := c.Locals(OwnerIDLocalKey).(string); ok {
		return v
	}
	return ""
}
