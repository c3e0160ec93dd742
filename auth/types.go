package auth

import "context"

// Provider 用于获取访问上游 chat 接口所需的 bearer token。
// anonUserID 为本次 token 对应的匿名用户（env 来源时可能为空）。
type Provider interface {
	Auth(ctx context.Context) (accessToken, anonUserID string, err error)
}

type Source string

const (
	SourceAnon Source = "anon"
	SourceEnv  Source = "env"
	SourceAuto Source = "auto"
)
