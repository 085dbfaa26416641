// Package middleware provides authentication, logging, rate limiting and telemetry middleware.
package middleware

import (
	"context"
	"strings"

	"threads/internal/models"
	"threads/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// SessionVerifier resolves a session token to a user ID.
type SessionVerifier interface {
	VerifySession(token string) (uint, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", false
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// SetUserID stores the authenticated user in Fiber locals and the user context.
func SetUserID(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	ctx := context.WithValue(c.UserContext(), observability.UserIDKey, userID)
	c.SetUserContext(ctx)
}

// UserID returns the authenticated user set by AuthRequired or OptionalAuth.
func UserID(c *fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals("userID").(uint)
	return userID, ok && userID != 0
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(verifier SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Missing or invalid authorization header"))
		}

		userID, err := verifier.VerifySession(token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, sessionError(err))
		}

		SetUserID(c, userID)
		return c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a valid bearer token is present.
// It never rejects a request.
func OptionalAuth(verifier SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := BearerToken(c); ok {
			if userID, err := verifier.VerifySession(token); err == nil {
				SetUserID(c, userID)
			}
		}
		return c.Next()
	}
}

func sessionError(err error) *models.AppError {
	if models.HasCode(err, models.CodeTokenExpired) {
		return &models.AppError{Code: models.CodeTokenExpired, Message: "Session has expired"}
	}
	return &models.AppError{Code: models.CodeInvalidToken, Message: "Invalid or expired token"}
}
