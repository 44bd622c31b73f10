package middleware

// identity.go provides typed accessors for the identity values JWTAuth
// stores in the Echo context.  Handlers use these instead of repeating
// type assertions.

import "github.com/labstack/echo/v4"

// Roles recognized in the "role" token claim.
const (
	RoleCustomer = "CUSTOMER"
	RoleStaff    = "STAFF"
	RoleAdmin    = "ADMIN"
	RoleDelivery = "DELIVERY"
)

// UserID returns the authenticated user's id, or zero when unauthenticated.
func UserID(c echo.Context) uint64 {
	v, _ := c.Get("user_id").(uint64)
	return v
}

// Role returns the authenticated user's role, or "" when unauthenticated.
func Role(c echo.Context) string {
	v, _ := c.Get("role").(string)
	return v
}

// BranchID returns the branch a staff token is scoped to, or zero.
func BranchID(c echo.Context) uint64 {
	v, _ := c.Get("branch_id").(uint64)
	return v
}
