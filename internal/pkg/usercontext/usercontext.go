package usercontext

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContext represents the authenticated principal of a request
type UserContext struct {
	UserID     uint     `json:"user_id"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	Roles      []string `json:"roles"`
	IsLoggedIn bool     `json:"is_logged_in"`
}

// HasRole reports whether the user holds any of the given roles. Role
// names compare case-insensitively.
func (u UserContext) HasRole(roles ...string) bool {
	for _, have := range u.Roles {
		for _, want := range roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// IsAdmin checks the admin role
func (u UserContext) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// SetUserContext stores the principal on the fiber context
func SetUserContext(c *fiber.Ctx, u UserContext) {
	c.Locals(KeyUserContext, u)
	c.Locals(KeyUserID, u.UserID)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
