package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/middleware"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// profileOrQuery returns the explicit id when given, otherwise the caller's own profile id.
func profileOrQuery(c *gin.Context, explicit string) string {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		return explicit
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role != models.RoleAdmin {
		return claims.ProfileID
	}
	return ""
}

// requireActor writes a 403 and returns false unless the caller may act for profileID.
func requireActor(c *gin.Context, profileID string) bool {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return false
	}
	if !claims.ActsFor(profileID) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "not allowed to act for this teacher or student"))
		return false
	}
	return true
}

// requireProfile returns the caller's linked teacher or student profile id.
func requireProfile(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	if claims.ProfileID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a profile"))
		return "", false
	}
	return claims.ProfileID, true
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
