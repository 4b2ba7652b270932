package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharma-backoffice/internal/domain"
)

// Patch 管理员可改的字段；nil 表示不改
type Patch struct {
	Name        *string            `json:"name"`
	Email       *string            `json:"email"`
	Phone       *string            `json:"phone"`
	Role        *domain.Role       `json:"role"`
	Status      *domain.UserStatus `json:"status"`
	KYCVerified *bool              `json:"kycVerified"`
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Create(ctx context.Context, in domain.UserInput) (*domain.User, error) {
	u, err := domain.NewUser(in)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	if err := s.repo.Add(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalid)
	}
	return s.repo.Get(ctx, id)
}

// Update 在当前记录上套用 p，再走一遍构造校验
func (s *Service) Update(ctx context.Context, id string, p Patch) (*domain.User, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in := domain.UserInput{
		ID: cur.ID, Name: cur.Name, Email: cur.Email, Phone: cur.Phone,
		Role: cur.Role, Status: cur.Status, KYCVerified: cur.KYCVerified,
	}
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Email != nil {
		in.Email = *p.Email
	}
	if p.Phone != nil {
		in.Phone = *p.Phone
	}
	if p.Role != nil {
		in.Role = *p.Role
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.KYCVerified != nil {
		in.KYCVerified = *p.KYCVerified
	}
	next, err := domain.NewUser(in)
	if err != nil {
		return nil, err
	}
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: user id required", domain.ErrInvalid)
	}
	return s.repo.Delete(ctx, id)
}

// ToggleBlock 本地库在单事务内读改写；远端是 get + update，多个调用方并发时后写覆盖
func (s *Service) ToggleBlock(ctx context.Context, id string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalid)
	}
	return toggle(ctx, s.repo, id)
}
