package domain

import (
	"context"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleSeller   Role = "seller"
	RoleCustomer Role = "customer"
)

type UserStatus string

const (
	UserActive  UserStatus = "active"
	UserBlocked UserStatus = "blocked"
)

type User struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `gorm:"size:128;not null" json:"name"`
	Email       string     `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Phone       string     `gorm:"size:32" json:"phone,omitempty"`
	Role        Role       `gorm:"index;size:16;not null" json:"role"`
	Status      UserStatus `gorm:"index;size:16;not null" json:"status"`
	KYCVerified bool       `gorm:"column:kyc_verified" json:"kycVerified"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// UserInput 管理端提交的用户，NewUser 先规整再校验
type UserInput struct {
	ID          string     `json:"id" validate:"max=36"`
	Name        string     `json:"name" validate:"required,max=128"`
	Email       string     `json:"email" validate:"required,email,max=191"`
	Phone       string     `json:"phone" validate:"max=32"`
	Role        Role       `json:"role" validate:"required,oneof=admin manager seller customer"`
	Status      UserStatus `json:"status" validate:"required,oneof=active blocked"`
	KYCVerified bool       `json:"kycVerified"`
}

// NewUser 规整（去空格、email 小写、status 默认 active）后校验
func NewUser(in UserInput) (*User, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Status == "" {
		in.Status = UserActive
	}
	if err := check(in); err != nil {
		return nil, err
	}
	return &User{
		ID:          in.ID,
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Role:        in.Role,
		Status:      in.Status,
		KYCVerified: in.KYCVerified,
	}, nil
}

// ToggleBlock active <-> blocked 互切
func (u *User) ToggleBlock() {
	if u.Status == UserBlocked {
		u.Status = UserActive
		return
	}
	u.Status = UserBlocked
}

// UserRepository 本地库和远端函数共用的契约
type UserRepository interface {
	Add(ctx context.Context, u *User) error
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}
