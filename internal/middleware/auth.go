package middleware

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/localrally/petitiond/internal/identity"
	"github.com/localrally/petitiond/internal/types"
)

// UserIDKey is the ctx locals key holding the resolved caller id.
const UserIDKey = "userID"

// RequireAuth resolves the caller credential and stores the user id in
// request locals. The credential is the X-Authorization header, falling
// back to the Authorizer session cookie.
func RequireAuth(resolver identity.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		credential := c.Get("X-Authorization")
		if credential == "" {
			credential = c.Cookies("cookie_session")
		}
		if credential == "" {
			return types.NewError(types.Unauthorized, "no credentials supplied")
		}

		userID, err := resolver.Resolve(c.Context(), credential)
		if err != nil {
			if errors.Is(err, identity.ErrUnresolved) {
				return types.NewError(types.Unauthorized, "credentials did not resolve to a user")
			}
			log.Printf("auth: resolve credential: %v", err)
			return types.NewError(types.Fault, "identity service unavailable")
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// CallerID returns the user id stored by RequireAuth.
func CallerID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(UserIDKey).(int64)
	return id
}
