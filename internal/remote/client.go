// Package remote 调用 manage-users 函数（用户数据的主来源）
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pharma-backoffice/internal/domain"
	"pharma-backoffice/pkg/utils"
)

// Credentials 每次外呼时提供 bearer 凭证
type Credentials interface {
	Bearer(ctx context.Context) (string, bool)
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Retry      RetryConfig
	HTTPClient *http.Client
}

type Client struct {
	base  string
	hc    *http.Client
	creds Credentials
	retry RetryConfig
}

func NewClient(opt Options, creds Credentials) *Client {
	hc := opt.HTTPClient
	if hc == nil {
		to := opt.Timeout
		if to <= 0 {
			to = 5 * time.Second
		}
		hc = &http.Client{Timeout: to}
	}
	retry := opt.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}
	return &Client{
		base:  strings.TrimRight(opt.BaseURL, "/"),
		hc:    hc,
		creds: creds,
		retry: retry,
	}
}

// Configured 是否配置了 base url
func (c *Client) Configured() bool { return c.base != "" }

func (c *Client) AddUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	var out domain.User
	if err := c.call(ctx, Request{Action: ActionAddUser, User: u}, &out); err != nil {
		return nil, err
	}
	return record(ActionAddUser, &out)
}

func (c *Client) UpdateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	var out domain.User
	if err := c.call(ctx, Request{Action: ActionUpdateUser, ID: u.ID, User: u}, &out); err != nil {
		return nil, err
	}
	return record(ActionUpdateUser, &out)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.call(ctx, Request{Action: ActionDeleteUser, ID: id}, nil)
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := c.call(ctx, Request{Action: ActionListUsers}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var out domain.User
	if err := c.call(ctx, Request{Action: ActionGetUser, ID: id}, &out); err != nil {
		return nil, err
	}
	return record(ActionGetUser, &out)
}

// record 要求响应里带回一条用户；data 缺失或为 {} 视为坏响应
func record(action string, u *domain.User) (*domain.User, error) {
	if u.ID == "" {
		return nil, &Error{Action: action, Err: fmt.Errorf("%w: no user record in data", ErrBadResponse)}
	}
	return u, nil
}

func (c *Client) call(ctx context.Context, in Request, out any) error {
	if !c.Configured() {
		return &Error{Action: in.Action, Err: ErrNotConfigured}
	}
	token, ok := c.creds.Bearer(ctx)
	if !ok {
		return &Error{Action: in.Action, Err: ErrNoCredential}
	}
	body, err := json.Marshal(in)
	if err != nil {
		return &Error{Action: in.Action, Err: err}
	}
	_, err = withRetry(ctx, c.retry, in.Action, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, token, body, out)
	})
	return err
}

func (c *Client) do(ctx context.Context, token string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+ManageUsersPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if rid := utils.RequestIDFrom(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &Error{Err: fmt.Errorf("%w: %v", ErrNetworkFailure, err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrNetworkFailure, err)}
	}
	var env envelope
	_ = json.Unmarshal(raw, &env) // 非 JSON 响应按状态码处理

	switch {
	case resp.StatusCode >= 500:
		return &Error{Status: resp.StatusCode, Detail: env.Msg, Err: ErrServerError}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &Error{Status: resp.StatusCode, Detail: env.Msg, Err: ErrRejected}
	case env.Code != 0:
		return &Error{Status: resp.StatusCode, Detail: env.Msg, Err: ErrRejected}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrBadResponse, err)}
	}
	return nil
}
