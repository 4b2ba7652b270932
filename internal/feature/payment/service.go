// Package payment 交易只存本地库，另外提供看板用的汇总
package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pharma-backoffice/internal/core/cache"
	"pharma-backoffice/internal/domain"
	"pharma-backoffice/internal/repo"
)

const summaryKey = "payments:summary"

// Store service 用到的 repo.TransactionRepo 子集
type Store interface {
	Add(ctx context.Context, t *domain.Transaction) error
	List(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, error)
	Get(ctx context.Context, id string) (*domain.Transaction, error)
	Refund(ctx context.Context, id string) (*domain.Transaction, bool, error)
	TotalsByStatus(ctx context.Context) ([]repo.StatusTotal, error)
}

// Summary 看板按状态汇总，金额单位：分
type Summary struct {
	Count    int64              `json:"count"`
	Gross    int64              `json:"gross"`
	Refunded int64              `json:"refunded"`
	ByStatus []repo.StatusTotal `json:"byStatus"`
}

type Service struct {
	store Store
	cache *cache.Cache
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time
}

func NewService(s Store, c *cache.Cache, ttl time.Duration, log *zap.Logger) *Service {
	if c == nil {
		c = &cache.Cache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{store: s, cache: c, ttl: ttl, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Record(ctx context.Context, in domain.TransactionInput) (*domain.Transaction, error) {
	t, err := domain.NewTransaction(in)
	if err != nil {
		return nil, err
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	if err := s.store.Add(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return t, nil
}

func (s *Service) List(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: transaction id required", domain.ErrInvalid)
	}
	return s.store.Get(ctx, id)
}

// Refund 已退款的交易不再写库，也不清缓存
func (s *Service) Refund(ctx context.Context, id string) (*domain.Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: transaction id required", domain.ErrInvalid)
	}
	t, changed, err := s.store.Refund(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.Info("transaction refunded", zap.String("id", t.ID), zap.String("order", t.OrderID), zap.Int64("amount", t.Amount))
		s.invalidate(ctx)
	}
	return t, nil
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	return cache.GetOrLoadJSON(s.cache, ctx, summaryKey, s.ttl, func(ctx context.Context) (*Summary, error) {
		totals, err := s.store.TotalsByStatus(ctx)
		if err != nil {
			return nil, err
		}
		out := &Summary{ByStatus: totals}
		for _, t := range totals {
			out.Count += t.Count
			switch t.Status {
			case domain.TxPaid:
				out.Gross += t.Amount
			case domain.TxRefunded:
				out.Refunded += t.Amount
			}
		}
		if out.ByStatus == nil {
			out.ByStatus = []repo.StatusTotal{}
		}
		return out, nil
	})
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, summaryKey); err != nil {
		s.log.Warn("invalidate payment summary", zap.Error(err))
	}
}
