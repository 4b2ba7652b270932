package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharma-backoffice/internal/core/auth"
	"pharma-backoffice/internal/core/config"
	"pharma-backoffice/internal/session"
	httpez "pharma-backoffice/internal/transport/http/ez"
	"pharma-backoffice/pkg/utils"
)

// mountAuthActions 挂 /auth/login（公共）和 /auth/logout（鉴权）。
// 登录签发的 JWT 同时写入 session，后台调用远端函数时作为 Bearer 使用。
func mountAuthActions(public, authed httpez.EZ, op config.Operator, jwter *auth.JWTer, sess session.Store, l *zap.Logger) {
	type loginIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	type loginOut struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
		Role      string    `json:"role"`
	}
	httpez.RegisterAction(public, httpez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (loginOut, error) {
			email := strings.ToLower(strings.TrimSpace(in.Email))
			// 邮箱不匹配也跑一次 bcrypt 比较，避免按耗时区分
			okPass := utils.CheckPassword(in.Password, op.PasswordHash)
			if op.Email == "" || email != strings.ToLower(op.Email) || !okPass {
				l.Warn("operator login rejected", zap.String("email", email), zap.String("ip", c.ClientIP()))
				return loginOut{}, httpez.Unauthorized("invalid credentials")
			}
			tok, err := jwter.Issue(email, op.Role)
			if err != nil {
				return loginOut{}, httpez.Internal("issue token failed", err)
			}
			if err := sess.Set(c.Request.Context(), tok); err != nil {
				l.Warn("cache session token", zap.Error(err))
			}
			return loginOut{Token: tok, ExpiresAt: time.Now().Add(jwter.TTL), Role: op.Role}, nil
		},
	})

	httpez.RegisterAction(authed, httpez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := sess.Clear(c.Request.Context()); err != nil {
				return nil, httpez.Internal("clear session failed", err)
			}
			return gin.H{"ok": true}, nil
		},
	})
}
