package middleware

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"pharma-backoffice/internal/core/auth"
	"pharma-backoffice/internal/session"
	resp "pharma-backoffice/internal/transport/http/response"
)

const (
	KeyClaims = "claims"
	KeyUserID = "userId"
	KeyRole   = "role"
)

// AuthJWT 校验 Bearer token；roles 为空时不限制角色。
// 通过校验的 token 会挂到 request ctx 上，转发给远端时优先使用。
func AuthJWT(j *auth.JWTer, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			resp.Abort(c, resp.CodeUnauthorized, "missing token")
			return
		}
		claims, err := j.Parse(raw)
		if err != nil {
			resp.Abort(c, resp.CodeUnauthorized, "invalid token")
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
			resp.Abort(c, resp.CodeForbidden, "forbidden")
			return
		}
		c.Set(KeyClaims, claims)
		c.Set(KeyUserID, claims.UID)
		c.Set(KeyRole, claims.Role)
		c.Request = c.Request.WithContext(session.WithBearer(c.Request.Context(), raw))
		c.Next()
	}
}
