package domain

import "time"

// TokenSafetyMargin 距过期不足这么久就当作失效
const TokenSafetyMargin = 5 * time.Minute

// Token 物流服务商的 token 对，全局只有一条
type Token struct {
	ID           uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	AccessToken  string    `gorm:"type:text;not null" json:"accessToken"`
	RefreshToken string    `gorm:"type:text" json:"refreshToken"`
	ExpiresIn    int64     `json:"expiresIn"`
	ExpiresAt    time.Time `json:"expiresAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Token) TableName() string { return "shipping_tokens" }

// NewToken 按收到时刻算绝对过期时间
func NewToken(access, refresh string, expiresIn int64, now time.Time) Token {
	return Token{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
		ExpiresAt:    now.Add(time.Duration(expiresIn) * time.Second),
	}
}

// ValidAt 距过期还超过 TokenSafetyMargin 才算有效
func (t Token) ValidAt(now time.Time) bool {
	if t.AccessToken == "" {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-TokenSafetyMargin))
}
