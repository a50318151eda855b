package gw2api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound    = errors.New("gw2api: not found")
	ErrBadRequest  = errors.New("gw2api: bad request")
	ErrRateLimited = errors.New("gw2api: rate limited")
)

// 文档注释：HTTP 非 2xx 响应
// 约束：Unwrap 返回与状态码对应的哨兵错误，调用方用 errors.Is 判定；Body 只保留前 256 字节。
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gw2api: %s returned %d: %s", e.URL, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// IsTerminal：资源不存在或请求非法，重试无意义，上层按“无结果”处理
func IsTerminal(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBadRequest)
}
