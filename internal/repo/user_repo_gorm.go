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

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

// Add 缺 id / 创建时间时自动补
func (r *UserRepo) Add(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.User{}).
			Where("id = ? OR email = ?", u.ID, u.Email).
			Count(&n).Error; err != nil {
			return fmt.Errorf("add user: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("add user %s: %w", u.ID, domain.ErrConflict)
		}
		if err := tx.Create(u).Error; err != nil {
			return storageErr("add user", err)
		}
		return nil
	})
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) Get(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Take(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// Update 按 id 整条覆盖，不存在就插入（email 唯一仍然校验）
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		return fmt.Errorf("%w: user id required", domain.ErrInvalid)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.User{}).
			Where("email = ? AND id <> ?", u.Email, u.ID).
			Count(&n).Error; err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("update user %s: email %s: %w", u.ID, u.Email, domain.ErrConflict)
		}
		if err := tx.Save(u).Error; err != nil {
			return storageErr("update user", err)
		}
		return nil
	})
}

// Delete 幂等
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.User{}).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ToggleBlock 单事务内读改写封禁状态，返回新记录
func (r *UserRepo) ToggleBlock(ctx context.Context, id string) (*domain.User, error) {
	var out domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Take(&out, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("toggle block: %w", err)
		}
		out.ToggleBlock()
		return tx.Model(&out).Update("status", out.Status).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
