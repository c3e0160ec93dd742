package openaihttp

import (
	"context"
	"net/http"
	"time"

	"github.com/LubyRuffy/ironb2o/backend"
)

// AuthProvider 提供访问上游 chat 接口所需的 bearer token。
// accessToken 用于 Authorization: Bearer <token>；anonUserID 仅用于日志（可为空）。
type AuthProvider func(ctx context.Context) (accessToken, anonUserID string, err error)

type Config struct {
	// BasePath 仅用于 Gin 注册路由时拼接路径，默认 "/v1"。
	BasePath string
	// IdentityURL 匿名 token 接口地址，默认 ironb2o.DefaultIdentityURL。
	IdentityURL string
	// ChatURL 上游 chat completions 端点地址，默认 ironb2o.DefaultChatURL。
	ChatURL string
	// HTTPClient 可选，nil 时使用只限制响应头等待时间的 client。
	HTTPClient *http.Client
	// Client 可选，非 nil 时直接用于上游调用，IdentityURL/ChatURL/HTTPClient/UserAgent 被忽略；
	// 调用方需要自行设置 Observer（例如 ObserveUpstream）才会记录上游指标。
	Client *backend.Client
	// UserAgent 可选，用于两个上游请求的 User-Agent。
	UserAgent string
	// AuthProvider 可选；nil 时每个请求都调用 identity 接口获取新的匿名 token。
	AuthProvider AuthProvider
	// Models 可选，覆盖 /v1/models 输出的模型列表。
	Models []string
	// Now 可选，用于生成 created 字段，默认 time.Now。
	Now func() time.Time
}
