package remote

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig 控制重试；MaxAttempts <= 1 不重试
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 1,
		InitialWait: 200 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Multiplier:  2.0,
	}
}

// 只重试网络错误和 5xx；鉴权、校验类错误直接返回
func retryable(err error) bool {
	return errors.Is(err, ErrNetworkFailure) || errors.Is(err, ErrServerError)
}

func (cfg RetryConfig) policy(ctx context.Context) backoff.BackOffContext {
	attempts := max(1, cfg.MaxAttempts)
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.InitialWait
	eb.Multiplier = max(1, cfg.Multiplier)
	if cfg.MaxWait > 0 {
		eb.MaxInterval = cfg.MaxWait
	}
	eb.MaxElapsedTime = 0 // 只按次数截止
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

func withRetry[T any](ctx context.Context, cfg RetryConfig, action string, fn func() (T, error)) (T, error) {
	var (
		out      T
		attempts int
	)
	err := backoff.Retry(func() error {
		attempts++
		v, err := fn()
		if err == nil {
			out = v
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, cfg.policy(ctx))
	if err != nil {
		var zero T
		return zero, annotate(err, action, attempts)
	}
	return out, nil
}

func annotate(err error, action string, attempts int) error {
	var re *Error
	if errors.As(err, &re) {
		re.Action = action
		re.Attempts = attempts
		return re
	}
	return &Error{Action: action, Attempts: attempts, Err: err}
}
