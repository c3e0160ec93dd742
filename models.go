package ironb2o

import "strings"

const (
	// DefaultIdentityURL 是获取匿名用户 token 的接口地址。
	DefaultIdentityURL = "https://www.iron.cx/api/upsert-anon-user"
	// DefaultChatURL 是上游 chat completions SSE 接口的默认地址。
	DefaultChatURL = "https://www.iron.cx/api/v1/chat/completions"
	// DefaultUserAgent 会同时用于 identity 与 chat 两个上游请求。
	DefaultUserAgent = "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Mobile Safari/537.36"

	// ModelOwner 是 /v1/models 中 owned_by 字段的固定值。
	ModelOwner = "organization-owner"
)

// ModelIDs 是 /v1/models 输出的内置模型列表，顺序即输出顺序。
var ModelIDs = []string{
	"perplexity/sonar",
	"google/gemini-2.5-flash",
	"google/gemini-2.0-flash",
	"openai/gpt-4.1-nano",
	"togetherai/Meta-Llama-3.1-70B-Instruct-Turbo",
	"google/gemini-1.5-flash-latest",
	"anthropic/claude-3-haiku-20240307",
	"openai/gpt-4o-mini",
}

// DefaultModelID 是 SDK/CLI 未指定模型时使用的模型。
const DefaultModelID = "openai/gpt-4o-mini"

// PresetModels 返回内置模型列表的副本（用于 /v1/models 输出）。
func PresetModels() []string {
	out := make([]string, len(ModelIDs))
	copy(out, ModelIDs)
	return out
}

// IsPresetModelID 判断是否为内置模型 ID。
// 上游会自行校验模型，这里只用于 CLI 提示，不在 HTTP 层拒绝请求。
func IsPresetModelID(modelID string) bool {
	trimmed := strings.TrimSpace(modelID)
	if trimmed == "" {
		return false
	}
	for _, id := range ModelIDs {
		if id == trimmed {
			return true
		}
	}
	return false
}
