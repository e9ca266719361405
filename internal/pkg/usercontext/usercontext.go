package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
)

// Kind of authenticated principal
type Kind string

const (
	KindAnonymous Kind = ""
	KindAdmin     Kind = "admin"
	KindUser      Kind = "user"
)

// UserContext is the authenticated principal of one request. It is built by the auth
// middleware and passed explicitly into services.
type UserContext struct {
	Kind        Kind           `json:"kind"`
	AdminID     uint           `json:"admin_id,omitempty"`
	UserID      uint           `json:"user_id,omitempty"`
	Username    string         `json:"username"`
	Permissions permission.Set `json:"-"`
	IPAddress   string         `json:"-"`
	UserAgent   string         `json:"-"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

// SetUserContext stores the principal for the rest of the request
func SetUserContext(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
}

// IsLoggedIn reports whether any principal is attached
func (u UserContext) IsLoggedIn() bool {
	return u.Kind != KindAnonymous
}

// IsAdmin reports whether the principal is a dashboard admin
func (u UserContext) IsAdmin() bool {
	return u.Kind == KindAdmin
}

// IsUser reports whether the principal is a reporter
func (u UserContext) IsUser() bool {
	return u.Kind == KindUser
}

// HasPermission is always false for reporters and anonymous callers
func (u UserContext) HasPermission(t permission.Token) bool {
	return u.IsAdmin() && u.Permissions.HasPermission(t)
}

// AdminIDPtr returns the admin id as a pointer for nullable columns
func (u UserContext) AdminIDPtr() *uint {
	if !u.IsAdmin() {
		return nil
	}
	id := u.AdminID
	return &id
}

// IsAdmin checks if the current principal is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin()
}

// GetAdminID returns the current admin's ID, or 0 if none
func GetAdminID(c *fiber.Ctx) uint {
	return GetUserContext(c).AdminID
}

// GetUserID returns the current reporter's ID, or 0 if none
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
