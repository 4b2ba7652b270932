package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pharma-backoffice/internal/domain"
)

// singletonTokenID 唯一那条 token 的主键
const singletonTokenID = 1

type TokenRepo struct{ db *gorm.DB }

func NewTokenRepo(db *gorm.DB) *TokenRepo { return &TokenRepo{db: db} }

// Load 没有 token 时返回 nil, nil
func (r *TokenRepo) Load(ctx context.Context) (*domain.Token, error) {
	var t domain.Token
	err := r.db.WithContext(ctx).Take(&t, "id = ?", singletonTokenID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	return &t, nil
}

func (r *TokenRepo) Save(ctx context.Context, t domain.Token) error {
	t.ID = singletonTokenID
	if err := r.db.WithContext(ctx).Save(&t).Error; err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (r *TokenRepo) Clear(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("id = ?", singletonTokenID).Delete(&domain.Token{}).Error; err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
