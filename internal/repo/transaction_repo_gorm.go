package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pharma-backoffice/internal/domain"
	"pharma-backoffice/pkg/utils"
)

type TransactionRepo struct{ db *gorm.DB }

func NewTransactionRepo(db *gorm.DB) *TransactionRepo { return &TransactionRepo{db: db} }

func (r *TransactionRepo) Add(ctx context.Context, t *domain.Transaction) error {
	if t.ID == "" {
		t.ID = utils.NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Transaction{}).Where("id = ?", t.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("add transaction: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("add transaction %s: %w", t.ID, domain.ErrConflict)
		}
		if err := tx.Create(t).Error; err != nil {
			return storageErr("add transaction", err)
		}
		return nil
	})
}

func (r *TransactionRepo) List(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&domain.Transaction{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Method != "" {
		q = q.Where("method = ?", f.Method)
	}
	var out []domain.Transaction
	if err := q.Order("created_at desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := r.db.WithContext(ctx).Take(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

// Refund 单事务内改为 refunded；已退款时 changed=false 且不写库
func (r *TransactionRepo) Refund(ctx context.Context, id string) (out *domain.Transaction, changed bool, err error) {
	var t domain.Transaction
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e := tx.Take(&t, "id = ?", id).Error
		if errors.Is(e, gorm.ErrRecordNotFound) {
			return fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}
		if e != nil {
			return fmt.Errorf("refund: %w", e)
		}
		if changed = t.Refund(); !changed {
			return nil
		}
		return tx.Model(&t).Update("status", t.Status).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &t, changed, nil
}

// StatusTotal 按状态聚合的一行
type StatusTotal struct {
	Status domain.TransactionStatus `json:"status"`
	Count  int64                    `json:"count"`
	Amount int64                    `json:"amount"`
}

func (r *TransactionRepo) TotalsByStatus(ctx context.Context) ([]StatusTotal, error) {
	var out []StatusTotal
	err := r.db.WithContext(ctx).Model(&domain.Transaction{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group("status").
		Order("status").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("totals by status: %w", err)
	}
	return out, nil
}
