package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ManuelReschke/UniClips/internal/pkg/usercontext"
)

// Claims is the payload of the access tokens issued by the auth service.
type Claims struct {
	ID    uint     `json:"id"`
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuth authenticates requests carrying an HS256 bearer token and stores
// the principal in the user context.
func JWTAuth(secret string) fiber.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *fiber.Ctx) error {
		raw := extractBearerToken(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "No token provided"})
		}
		if len(key) == 0 {
			log.Error("[Auth] JWT_SECRET is not set, rejecting token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Token verification unavailable"})
		}

		claims := &Claims{}
		_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || claims.ID == 0 {
			if err == nil {
				err = errors.New("missing id claim")
			}
			log.Warnf("[Auth] Token verification failed: %v", err)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid_token", "message": "Invalid token"})
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     claims.ID,
			Email:      claims.Email,
			Name:       claims.Name,
			Roles:      claims.Roles,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

// RequireRole allows the request when the user holds any of the roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := usercontext.GetUserContext(c)
		if !user.IsLoggedIn {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Not authenticated"})
		}
		if !user.HasRole(roles...) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Access denied"})
		}
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
