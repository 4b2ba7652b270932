package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pharma-backoffice/internal/core/auth"
	"pharma-backoffice/internal/core/server"
	"pharma-backoffice/internal/domain"
	"pharma-backoffice/internal/remote"
	httpez "pharma-backoffice/internal/transport/http/ez"
	mdw "pharma-backoffice/internal/transport/http/middleware"
)

// NewAPIEngine 远端函数服务：后台优先调用这里，失败才退回本地库
func NewAPIEngine(l *zap.Logger, users domain.UserRepository, jwter *auth.JWTer, allowOrigins ...string) *gin.Engine {
	r := server.NewRouter(l, allowOrigins...)

	r.Use(
		mdw.RequestID(),
		mdw.AccessLog(l),
		mdw.Metrics(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	fn := r.Group("/functions")
	fn.Use(mdw.AuthJWT(jwter, roleAdmin, roleManager))
	NewRegistry(functionsModule{users: users, log: l}).MountAllAPI(fn)

	return r
}

type functionsModule struct {
	users domain.UserRepository
	log   *zap.Logger
}

func (m functionsModule) MountAPI(g *gin.RouterGroup) {
	httpez.POST(httpez.New(g), "/manage-users", func(c *gin.Context, in remote.Request) (any, error) {
		ctx := c.Request.Context()
		switch in.Action {
		case remote.ActionListUsers:
			us, err := m.users.List(ctx)
			if us == nil && err == nil {
				us = []domain.User{}
			}
			return us, err

		case remote.ActionGetUser:
			if in.ID == "" {
				return nil, httpez.BadRequest("id required")
			}
			return m.users.Get(ctx, in.ID)

		case remote.ActionAddUser:
			u, err := validUser(in)
			if err != nil {
				return nil, err
			}
			if err := m.users.Add(ctx, u); err != nil {
				return nil, err
			}
			return u, nil

		case remote.ActionUpdateUser:
			u, err := validUser(in)
			if err != nil {
				return nil, err
			}
			if u.ID == "" {
				return nil, httpez.BadRequest("id required")
			}
			if err := m.users.Update(ctx, u); err != nil {
				return nil, err
			}
			return u, nil

		case remote.ActionDeleteUser:
			if in.ID == "" {
				return nil, httpez.BadRequest("id required")
			}
			if err := m.users.Delete(ctx, in.ID); err != nil {
				return nil, err
			}
			m.log.Info("user deleted", zap.String("id", in.ID), zap.String("by", c.GetString(mdw.KeyUserID)))
			return gin.H{"id": in.ID}, nil
		}
		return nil, httpez.BadRequest(fmt.Sprintf("unknown action %q", in.Action))
	})
}

// validUser 请求里的 user 重新走一遍构造校验，只保留时间戳
func validUser(in remote.Request) (*domain.User, error) {
	if in.User == nil {
		return nil, httpez.BadRequest("user required")
	}
	id := in.User.ID
	if id == "" {
		id = in.ID
	}
	u, err := domain.NewUser(domain.UserInput{
		ID:          id,
		Name:        in.User.Name,
		Email:       in.User.Email,
		Phone:       in.User.Phone,
		Role:        in.User.Role,
		Status:      in.User.Status,
		KYCVerified: in.User.KYCVerified,
	})
	if err != nil {
		return nil, err
	}
	u.CreatedAt = in.User.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	return u, nil
}
