package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pharma-backoffice/internal/domain"
	"pharma-backoffice/internal/feature/payment"
	"pharma-backoffice/internal/feature/shipping"
	"pharma-backoffice/internal/feature/user"
	httpez "pharma-backoffice/internal/transport/http/ez"
	"pharma-backoffice/internal/transport/http/handler"
)

const (
	roleAdmin   = string(domain.RoleAdmin)
	roleManager = string(domain.RoleManager)
)

// ---------- 用户 ----------

type usersModule struct{ svc *user.Service }

func (usersModule) Priority() int { return 10 }

func (m usersModule) MountAdmin(g *gin.RouterGroup) {
	ez := httpez.New(g)

	httpez.RegisterAction(ez, httpez.Action[struct{}, []domain.User]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.User, error) {
			us, err := m.svc.List(c.Request.Context())
			if us == nil && err == nil {
				us = []domain.User{}
			}
			return us, err
		},
	})

	httpez.RegisterAction(ez, httpez.Action[domain.UserInput, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *domain.UserInput) (*domain.User, error) {
			return m.svc.Create(c.Request.Context(), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return m.svc.Get(c.Request.Context(), c.Param("id"))
		},
	})

	httpez.RegisterAction(ez, httpez.Action[user.Patch, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/:id",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *user.Patch) (*domain.User, error) {
			return m.svc.Update(c.Request.Context(), c.Param("id"), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  []string{roleAdmin},
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := m.svc.Delete(c.Request.Context(), id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users/:id/toggle-block",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return m.svc.ToggleBlock(c.Request.Context(), c.Param("id"))
		},
	})
}

// ---------- 交易 ----------

type transactionsModule struct{ svc *payment.Service }

func (transactionsModule) Priority() int { return 20 }

func (m transactionsModule) MountAdmin(g *gin.RouterGroup) {
	ez := httpez.New(g)

	type listQ struct {
		Status domain.TransactionStatus `form:"status"`
		Method domain.PaymentMethod     `form:"method"`
	}
	httpez.RegisterAction(ez, httpez.Action[listQ, []domain.Transaction]{
		Method: http.MethodGet,
		Path:   "/transactions",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *listQ) ([]domain.Transaction, error) {
			txs, err := m.svc.List(c.Request.Context(), domain.TransactionFilter{Status: in.Status, Method: in.Method})
			if txs == nil && err == nil {
				txs = []domain.Transaction{}
			}
			return txs, err
		},
	})

	httpez.RegisterAction(ez, httpez.Action[domain.TransactionInput, *domain.Transaction]{
		Method: http.MethodPost,
		Path:   "/transactions",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *domain.TransactionInput) (*domain.Transaction, error) {
			return m.svc.Record(c.Request.Context(), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *payment.Summary]{
		Method: http.MethodGet,
		Path:   "/transactions/summary",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*payment.Summary, error) {
			return m.svc.Summary(c.Request.Context())
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.Transaction]{
		Method: http.MethodGet,
		Path:   "/transactions/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Transaction, error) {
			return m.svc.Get(c.Request.Context(), c.Param("id"))
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.Transaction]{
		Method: http.MethodPost,
		Path:   "/transactions/:id/refund",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  []string{roleAdmin},
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Transaction, error) {
			return m.svc.Refund(c.Request.Context(), c.Param("id"))
		},
	})
}

// ---------- 物流授权 ----------

type shippingModule struct{ m *shipping.Manager }

func (shippingModule) Priority() int { return 30 }

func (s shippingModule) MountAdmin(g *gin.RouterGroup) {
	ez := httpez.New(g)

	httpez.RegisterAction(ez, httpez.Action[struct{}, shipping.Status]{
		Method: http.MethodGet,
		Path:   "/shipping/status",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (shipping.Status, error) {
			return s.m.Status(c.Request.Context())
		},
	})

	// origin 由前端传 window.location.origin；缺省用服务自身地址
	type authorizeQ struct {
		Origin string `form:"origin"`
	}
	httpez.RegisterAction(ez, httpez.Action[authorizeQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/shipping/authorize",
		Binder: httpez.BindQuery,
		Auth:   true,
		Roles:  []string{roleAdmin},
		Handler: func(c *gin.Context, in *authorizeQ) (gin.H, error) {
			origin := in.Origin
			if origin == "" {
				origin = handler.RequestOrigin(c)
			}
			return gin.H{"url": s.m.BuildAuthorizationURL(origin)}, nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/shipping/revoke",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  []string{roleAdmin},
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := s.m.ClearTokens(c.Request.Context()); err != nil {
				return nil, err
			}
			return gin.H{"authorized": false}, nil
		},
	})
}
