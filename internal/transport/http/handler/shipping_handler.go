package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharma-backoffice/internal/domain"
)

// Exchanger 回调只需要 token manager 的这几个方法
type Exchanger interface {
	ExchangeCode(ctx context.Context, code, origin string) (*domain.Token, error)
	State() string
}

// ShippingCallback 操作员授权后服务商重定向回来的地址
type ShippingCallback struct {
	M          Exchanger
	SuccessURL string
	ErrorURL   string
	// Origin 后台对外的 base URL，用来还原授权时的 redirect_uri；为空则从回调请求本身推导
	Origin string
	Log    *zap.Logger
}

func (h ShippingCallback) Handle(c *gin.Context) {
	if msg := c.Query("error"); msg != "" {
		if d := c.Query("error_description"); d != "" {
			msg = d
		}
		h.fail(c, msg)
		return
	}
	code := c.Query("code")
	if code == "" {
		h.fail(c, "missing authorization code")
		return
	}
	// state 是固定值，只记录不校验
	if st := c.Query("state"); st != h.M.State() {
		h.Log.Warn("shipping oauth state mismatch", zap.String("state", st))
	}
	if _, err := h.M.ExchangeCode(c.Request.Context(), code, h.origin(c)); err != nil {
		h.Log.Warn("shipping code exchange failed", zap.Error(err))
		h.fail(c, err.Error())
		return
	}
	c.Redirect(http.StatusFound, withQuery(h.SuccessURL, "authorized", "true"))
}

func (h ShippingCallback) origin(c *gin.Context) string {
	if h.Origin != "" {
		return h.Origin
	}
	return RequestOrigin(c)
}

// RequestOrigin 客户端看到的 scheme://host（认代理的 X-Forwarded-Proto）
func RequestOrigin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + c.Request.Host
}

func (h ShippingCallback) fail(c *gin.Context, msg string) {
	c.Redirect(http.StatusFound, withQuery(h.ErrorURL, "error", msg))
}

func withQuery(raw, key, val string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(key, val)
	u.RawQuery = q.Encode()
	return u.String()
}
