package middleware

import (
	"strconv"

	"github.com/anjiri1684/smart_roommate/apperrors"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
)

const userLocal = "user"

// Protected rejects requests without a valid bearer token signed with secret.
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ContextKey:   userLocal,
		ErrorHandler: jwtError,
	})
}

func jwtError(_ *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return apperrors.Unauthenticated("Missing or malformed JWT")
	}
	return apperrors.Unauthenticated("Invalid or expired JWT")
}

// UserID returns the authenticated user's id from the token Protected verified.
func UserID(c *fiber.Ctx) (uint, error) {
	token, ok := c.Locals(userLocal).(*jwt.Token)
	if !ok || token == nil {
		return 0, apperrors.Unauthenticated("Not authenticated")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, apperrors.Unauthenticated("Not authenticated")
	}

	switch v := claims["user_id"].(type) {
	case float64:
		if v > 0 && v == float64(uint(v)) {
			return uint(v), nil
		}
	case string:
		if id, err := strconv.ParseUint(v, 10, 64); err == nil && id > 0 {
			return uint(id), nil
		}
	}
	return 0, apperrors.Unauthenticated("Not authenticated")
}
