package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/fluxo-backend/pkg/helpers"
)

// Context keys set by Auth.
const (
	CtxUserIDKey    = "userID"
	CtxUserEmailKey = "userEmail"
	CtxSessionIDKey = "sessionID"
)

// accessToken reads the bearer token from the Authorization header and
// falls back to the access_token cookie.
func accessToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if token, err := c.Cookie(helpers.AccessCookie); err == nil {
		return token
	}
	return ""
}
