package middleware

import "github.com/gin-gonic/gin"

// adminIDKey is the key used to store the authenticated admin's ID in the
// request context.
const adminIDKey = contextKey("adminID")

// privilegeKey is the key used to store the authenticated admin's privilege
// level claim in the request context.
const privilegeKey = contextKey("privilege")

// GetAdminIDFromContext retrieves the authenticated admin ID from the Gin
// context. It returns the ID and a boolean indicating if it was found.
func GetAdminIDFromContext(c *gin.Context) (string, bool) {
	adminIDVal := c.Request.Context().Value(adminIDKey)
	if adminIDVal == nil {
		return "", false
	}
	adminID, ok := adminIDVal.(string)
	if !ok || adminID == "" {
		return "", false
	}
	return adminID, true
}

// GetPrivilegeFromContext retrieves the authenticated admin's privilege
// claim from the Gin context.
func GetPrivilegeFromContext(c *gin.Context) (string, bool) {
	privilegeVal := c.Request.Context().Value(privilegeKey)
	if privilegeVal == nil {
		return "", false
	}
	privilege, ok := privilegeVal.(string)
	if !ok || privilege == "" {
		return "", false
	}
	return privilege, true
}
