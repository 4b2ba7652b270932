// Package ez 让 gin handler 直接返回 (data, error)，信封和状态码统一在这里处理
package ez

import (
	"github.com/gin-gonic/gin"

	resp "pharma-backoffice/internal/transport/http/response"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// Group 派生子路由，可追加中间件
func (e EZ) Group(path string, mw ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, mw...)}
}

func (e EZ) GET(path string, h func(c *gin.Context) (any, error)) {
	e.g.GET(path, func(c *gin.Context) {
		data, err := h(c)
		if err != nil {
			writeErr(c, err)
			return
		}
		resp.WriteOK(c, data)
	})
}

func POST[T any](e EZ, path string, h func(c *gin.Context, in T) (any, error)) {
	e.g.POST(path, func(c *gin.Context) {
		var in T
		if err := c.ShouldBindJSON(&in); err != nil {
			writeBindErr(c, err)
			return
		}
		data, err := h(c, in)
		if err != nil {
			writeErr(c, err)
			return
		}
		resp.WriteOK(c, data)
	})
}
