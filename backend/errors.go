package backend

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUpstreamAuth 表示获取匿名用户 token 失败。
	ErrUpstreamAuth = errors.New("upstream auth failed")
	// ErrUpstreamRequest 表示上游 chat completions 请求失败。
	ErrUpstreamRequest = errors.New("upstream chat request failed")
	// ErrMalformedEvent 表示单条 SSE 记录无法解析；调用方应跳过该记录而不是中断流。
	ErrMalformedEvent = errors.New("malformed upstream event")
)

// StatusError 记录上游返回的非 2xx 状态码与（截断后的）响应体。
type StatusError struct {
	Err        error
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return ""
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%v: status %d", e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d: %s", e.Err, e.StatusCode, body)
}

func (e *StatusError) Unwrap() error { return e.Err }
