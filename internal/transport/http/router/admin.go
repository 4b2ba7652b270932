package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pharma-backoffice/internal/core/auth"
	"pharma-backoffice/internal/core/config"
	"pharma-backoffice/internal/core/server"
	"pharma-backoffice/internal/feature/payment"
	"pharma-backoffice/internal/feature/shipping"
	"pharma-backoffice/internal/feature/user"
	"pharma-backoffice/internal/session"
	httpez "pharma-backoffice/internal/transport/http/ez"
	"pharma-backoffice/internal/transport/http/handler"
	mdw "pharma-backoffice/internal/transport/http/middleware"
)

type AdminDeps struct {
	Log          *zap.Logger
	JWT          *auth.JWTer
	Operator     config.Operator
	Session      session.Store
	Users        *user.Service
	Payments     *payment.Service
	Shipping     *shipping.Manager
	Callback     handler.ShippingCallback
	CallbackPath string
	AllowOrigins []string
}

func NewAdminEngine(d AdminDeps) *gin.Engine {
	r := server.NewRouter(d.Log, d.AllowOrigins...)

	r.Use(
		mdw.RequestID(),
		mdw.AccessLog(d.Log),
		mdw.Metrics(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(64),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(15*time.Second),
	)

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 物流平台回调（公共，浏览器跳转过来，不带 JWT）
	path := d.CallbackPath
	if path == "" {
		path = "/shipping/oauth/callback"
	}
	r.GET(path, d.Callback.Handle)

	v1 := r.Group("/admin/v1")
	public := httpez.New(v1.Group("", mdw.RateLimitPerIP(1, 5)))

	// 管理端 v1（admin / manager 可进，个别接口再限 admin）
	admin := v1.Group("")
	admin.Use(mdw.AuthJWT(d.JWT, roleAdmin, roleManager))

	mountAuthActions(public, httpez.New(admin), d.Operator, d.JWT, d.Session, d.Log)

	NewRegistry(
		usersModule{svc: d.Users},
		transactionsModule{svc: d.Payments},
		shippingModule{m: d.Shipping},
	).MountAllAdmin(admin)

	return r
}
