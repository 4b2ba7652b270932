// Package shipping 维护物流服务商的 OAuth2 token（授权、换取、刷新）
package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"pharma-backoffice/internal/domain"
)

// TokenStore 持久化唯一的一条 token 记录
type TokenStore interface {
	Load(ctx context.Context) (*domain.Token, error)
	Save(ctx context.Context, t domain.Token) error
	Clear(ctx context.Context) error
}

type Config struct {
	BaseURL            string
	ClientID           string
	ClientSecret       string
	CallbackPath       string
	DefaultRedirectURI string
	Scopes             []string
	State              string
	Placeholder        string
	Timeout            time.Duration
}

// Status 设置页展示用
type Status struct {
	Authorized bool       `json:"authorized"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

var refreshTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "shipping_token_refresh_total", Help: "Shipping token refresh attempts"},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(refreshTotal)
}

type Manager struct {
	cfg   Config
	store TokenStore
	hc    *http.Client
	log   *zap.Logger
	now   func() time.Time
	sf    singleflight.Group
}

type Option func(*Manager)

// WithClock 替换 time.Now（测试用）
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func WithHTTPClient(hc *http.Client) Option { return func(m *Manager) { m.hc = hc } }

func WithLogger(l *zap.Logger) Option { return func(m *Manager) { m.log = l } }

func NewManager(cfg Config, store TokenStore, opts ...Option) *Manager {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = "/shipping/oauth/callback"
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = "shipping-token-unavailable"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	m := &Manager{
		cfg:   cfg,
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	if m.hc == nil {
		m.hc = &http.Client{Timeout: cfg.Timeout}
	}
	return m
}

func (m *Manager) oauth(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.cfg.ClientID,
		ClientSecret: m.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   m.cfg.BaseURL + "/oauth/authorize",
			TokenURL:  m.cfg.BaseURL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURI,
		Scopes:      m.cfg.Scopes,
	}
}

func (m *Manager) redirectURI(origin string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return m.cfg.DefaultRedirectURI
	}
	return origin + m.cfg.CallbackPath
}

func (m *Manager) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.hc)
}

// State 每次授权请求带的固定 state
func (m *Manager) State() string { return m.cfg.State }

// BuildAuthorizationURL 同一个 origin 结果固定
func (m *Manager) BuildAuthorizationURL(origin string) string {
	return m.oauth(m.redirectURI(origin)).AuthCodeURL(m.cfg.State)
}

// ExchangeCode 用授权码换 token 并落库；origin 必须和生成授权链接时一致
func (m *Manager) ExchangeCode(ctx context.Context, code, origin string) (*domain.Token, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: empty authorization code", domain.ErrExchangeFailed)
	}
	tok, err := m.oauth(m.redirectURI(origin)).Exchange(m.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExchangeFailed, providerError(err))
	}
	t := m.record(tok, "")
	if err := m.store.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExchangeFailed, err)
	}
	m.log.Info("shipping token stored", zap.Time("expiresAt", t.ExpiresAt))
	return &t, nil
}

// GetAccessToken 永不报错：拿不到可用 token 时返回占位串
func (m *Manager) GetAccessToken(ctx context.Context) string {
	t, err := m.store.Load(ctx)
	if err != nil {
		m.log.Warn("load shipping token", zap.Error(err))
		return m.cfg.Placeholder
	}
	if t == nil {
		return m.cfg.Placeholder
	}
	if t.ValidAt(m.now()) {
		return t.AccessToken
	}
	if t.RefreshToken == "" {
		return m.cfg.Placeholder
	}
	v, err, _ := m.sf.Do("refresh", func() (any, error) {
		// 刷新结果会分给所有等待者，不能跟着第一个调用方的请求一起被取消
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.Timeout)
		defer cancel()
		return m.refresh(rctx, t.RefreshToken)
	})
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		m.log.Warn("refresh shipping token", zap.Error(err))
		return m.cfg.Placeholder
	}
	refreshTotal.WithLabelValues("ok").Inc()
	return v.(*domain.Token).AccessToken
}

func (m *Manager) refresh(ctx context.Context, refreshToken string) (*domain.Token, error) {
	// Expiry 置为过去，强制 TokenSource 走 refresh_token
	src := m.oauth("").TokenSource(m.withClient(ctx), &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		return nil, providerError(err)
	}
	t := m.record(tok, refreshToken)
	if err := m.store.Save(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (m *Manager) HasValidToken(ctx context.Context) bool {
	t, err := m.store.Load(ctx)
	if err != nil || t == nil {
		return false
	}
	return t.ValidAt(m.now())
}

func (m *Manager) ClearTokens(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	m.log.Info("shipping token cleared")
	return nil
}

func (m *Manager) Status(ctx context.Context) (Status, error) {
	t, err := m.store.Load(ctx)
	if err != nil {
		return Status{}, err
	}
	if t == nil {
		return Status{}, nil
	}
	exp := t.ExpiresAt
	return Status{Authorized: t.ValidAt(m.now()), ExpiresAt: &exp}, nil
}

// record 服务商没下发新 refresh_token 时沿用旧的
func (m *Manager) record(tok *oauth2.Token, prevRefresh string) domain.Token {
	now := m.now()
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = prevRefresh
	}
	expiresIn := expiresInSeconds(tok)
	if expiresIn == 0 && !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	t := domain.NewToken(tok.AccessToken, refresh, expiresIn, now)
	t.UpdatedAt = now
	return t
}

// expiresInSeconds 读原始 expires_in，过期时间按注入的时钟算，不用 oauth2 库自己的
func expiresInSeconds(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// providerError 保留服务商原文，错误页会展示
func providerError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		msg := re.ErrorDescription
		if msg == "" {
			msg = re.ErrorCode
		}
		if msg == "" {
			msg = strings.TrimSpace(string(re.Body))
		}
		if msg != "" {
			return fmt.Errorf("provider: %s: %w", msg, err)
		}
	}
	return err
}
