package user

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"pharma-backoffice/internal/domain"
	"pharma-backoffice/internal/remote"
	"pharma-backoffice/internal/repo"
)

// Repository 本地库、远端函数、以及两者的 fallback 组合都实现它
type Repository = domain.UserRepository

// Toggler 可选能力：仓储自己能原子地切换封禁状态（本地库在一个事务里做）
type Toggler interface {
	ToggleBlock(ctx context.Context, id string) (*domain.User, error)
}

// toggle 优先用仓储自带的 ToggleBlock，否则 get + 翻转 + update
func toggle(ctx context.Context, r Repository, id string) (*domain.User, error) {
	if t, ok := r.(Toggler); ok {
		return t.ToggleBlock(ctx, id)
	}
	return flip(ctx, r, id)
}

// flip 非原子：并发时后写覆盖
func flip(ctx context.Context, r Repository, id string) (*domain.User, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.ToggleBlock()
	u.UpdatedAt = time.Now().UTC()
	if err := r.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

var fallbackTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "store_fallback_total", Help: "Remote calls served by the local store"},
	[]string{"entity", "op"},
)

func init() {
	prometheus.MustRegister(fallbackTotal)
}

// LocalRepository gorm 本地库；ToggleBlock 来自 UserRepo，单事务读改写
type LocalRepository struct{ *repo.UserRepo }

func NewLocalRepository(r *repo.UserRepo) LocalRepository { return LocalRepository{r} }

// RemoteRepository 包一层 manage-users 客户端
type RemoteRepository struct{ c *remote.Client }

func NewRemoteRepository(c *remote.Client) RemoteRepository { return RemoteRepository{c: c} }

// Add 远端回显的记录写回 u
func (r RemoteRepository) Add(ctx context.Context, u *domain.User) error {
	out, err := r.c.AddUser(ctx, u)
	if err != nil {
		return err
	}
	*u = *out
	return nil
}

func (r RemoteRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.c.ListUsers(ctx)
}

func (r RemoteRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	return r.c.GetUser(ctx, id)
}

func (r RemoteRepository) Update(ctx context.Context, u *domain.User) error {
	out, err := r.c.UpdateUser(ctx, u)
	if err != nil {
		return err
	}
	*u = *out
	return nil
}

func (r RemoteRepository) Delete(ctx context.Context, id string) error {
	return r.c.DeleteUser(ctx, id)
}

// ToggleBlock 远端没有专门的 action，只能 getUser + updateUser
func (r RemoteRepository) ToggleBlock(ctx context.Context, id string) (*domain.User, error) {
	return flip(ctx, r, id)
}

// FallbackRepository 先走 primary，primary 不可用时同一调用在 fallback 上重放；两边不做对账
type FallbackRepository struct {
	primary  Repository
	fallback Repository
	log      *zap.Logger
}

func NewFallbackRepository(primary, fallback Repository, log *zap.Logger) *FallbackRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &FallbackRepository{primary: primary, fallback: fallback, log: log}
}

func (f *FallbackRepository) degraded(op string, err error) bool {
	if !errors.Is(err, domain.ErrRemoteUnavailable) {
		return false
	}
	fallbackTotal.WithLabelValues("user", op).Inc()
	f.log.Warn("remote user store unavailable, using local store", zap.String("op", op), zap.Error(err))
	return true
}

func (f *FallbackRepository) Add(ctx context.Context, u *domain.User) error {
	err := f.primary.Add(ctx, u)
	if f.degraded("add", err) {
		return f.fallback.Add(ctx, u)
	}
	return err
}

func (f *FallbackRepository) List(ctx context.Context) ([]domain.User, error) {
	out, err := f.primary.List(ctx)
	if f.degraded("list", err) {
		return f.fallback.List(ctx)
	}
	return out, err
}

func (f *FallbackRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	out, err := f.primary.Get(ctx, id)
	if f.degraded("get", err) {
		return f.fallback.Get(ctx, id)
	}
	return out, err
}

func (f *FallbackRepository) Update(ctx context.Context, u *domain.User) error {
	err := f.primary.Update(ctx, u)
	if f.degraded("update", err) {
		return f.fallback.Update(ctx, u)
	}
	return err
}

func (f *FallbackRepository) Delete(ctx context.Context, id string) error {
	err := f.primary.Delete(ctx, id)
	if f.degraded("delete", err) {
		return f.fallback.Delete(ctx, id)
	}
	return err
}

func (f *FallbackRepository) ToggleBlock(ctx context.Context, id string) (*domain.User, error) {
	out, err := toggle(ctx, f.primary, id)
	if f.degraded("toggle_block", err) {
		return toggle(ctx, f.fallback, id)
	}
	return out, err
}
