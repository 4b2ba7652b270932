package remote

import (
	"errors"
	"fmt"

	"pharma-backoffice/internal/domain"
)

var (
	ErrNotConfigured  = errors.New("remote base url not set")
	ErrNoCredential   = errors.New("no bearer credential")
	ErrNetworkFailure = errors.New("network failure")
	ErrServerError    = errors.New("server error")
	ErrRejected       = errors.New("request rejected")
	ErrBadResponse    = errors.New("malformed response")
)

// Error 所有失败调用都返回它；总是匹配 domain.ErrRemoteUnavailable，调用方直接降级
type Error struct {
	Action   string
	Status   int    // HTTP 状态码，请求没完成时为 0
	Attempts int
	Detail   string // 服务端 msg
	Err      error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("remote %s failed after %d attempts: %v", e.Action, e.Attempts, e.Err)
	if e.Status != 0 {
		s += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == domain.ErrRemoteUnavailable }
