package utils

import (
	"context"

	"github.com/google/uuid"
)

// NewID 生成记录主键
func NewID() string { return uuid.NewString() }

type ridKey struct{}

// WithRequestID 请求 id 放进 ctx，下游调用（远端函数）带上同一个 id
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ridKey{}, rid)
}

func RequestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(ridKey{}).(string)
	return rid
}
