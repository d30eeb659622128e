package auth

import (
	"fmt"

	"github.com/oakstreet-digital/business-site-backend/internal/domain"
	"github.com/oakstreet-digital/business-site-backend/pkg/util"
)

// RequireRole rejects claims that do not carry the required role. Services
// call this before any privileged operation.
func RequireRole(claims *Claims, role domain.Role) error {
	if claims == nil {
		return util.NewUnauthorized("authentication required")
	}
	if claims.Role != role {
		return util.NewForbidden(fmt.Sprintf("%s role required", role))
	}
	return nil
}
