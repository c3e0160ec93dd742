package openaiapi

import (
	"encoding/json"
	"time"
)

const (
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
	ObjectModel               = "model"
	ObjectList                = "list"

	FinishReasonStop = "stop"
	RoleAssistant    = "assistant"
)

// OpenAIMessage OpenAI 非流式响应中的消息。
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIChoice OpenAI 非流式响应选项。
type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason *string       `json:"finish_reason"`
}

// OpenAIDelta OpenAI 流式响应的 delta。content 总是输出（可能为空字符串）。
type OpenAIDelta struct {
	Content string `json:"content"`
}

// OpenAIChunkChoice OpenAI 流式响应选项。
type OpenAIChunkChoice struct {
	Index        int         `json:"index"`
	Delta        OpenAIDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// OpenAIChatCompletion OpenAI 非流式响应。usage 原样透传上游终止记录中的内容。
type OpenAIChatCompletion struct {
	ID      string          `json:"id"`
	Object  string          `json:"object"`
	Created int64           `json:"created"`
	Model   string          `json:"model"`
	Choices []OpenAIChoice  `json:"choices"`
	Usage   json.RawMessage `json:"usage"`
}

// OpenAIChatChunk OpenAI 流式响应块。
type OpenAIChatChunk struct {
	ID      string              `json:"id"`
	Object  string              `json:"object"`
	Created int64               `json:"created"`
	Model   string              `json:"model"`
	Choices []OpenAIChunkChoice `json:"choices"`
}

// OpenAIModel OpenAI 模型信息。
type OpenAIModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// OpenAIModelList OpenAI 模型列表响应。
type OpenAIModelList struct {
	Object string        `json:"object"`
	Data   []OpenAIModel `json:"data"`
}

// OpenAIError OpenAI 错误响应。
type OpenAIError struct {
	Error struct {
		Message string  `json:"message"`
		Type    string  `json:"type"`
		Param   any     `json:"param"`
		Code    *string `json:"code"`
	} `json:"error"`
}

// ==================== 辅助函数 ====================

// ToChatChunk 创建流式响应块；finishReason 为 nil 时输出 null。
func ToChatChunk(id, model, content string, finishReason *string, now time.Time) OpenAIChatChunk {
	return OpenAIChatChunk{
		ID:      id,
		Object:  ObjectChatCompletionChunk,
		Created: now.Unix(),
		Model:   model,
		Choices: []OpenAIChunkChoice{
			{
				Index:        0,
				Delta:        OpenAIDelta{Content: content},
				FinishReason: finishReason,
			},
		},
	}
}

// ToChatCompletion 创建非流式响应。
func ToChatCompletion(id, model, content string, usage json.RawMessage, now time.Time) OpenAIChatCompletion {
	finishReason := FinishReasonStop
	return OpenAIChatCompletion{
		ID:      id,
		Object:  ObjectChatCompletion,
		Created: now.Unix(),
		Model:   model,
		Choices: []OpenAIChoice{
			{
				Index: 0,
				Message: OpenAIMessage{
					Role:    RoleAssistant,
					Content: content,
				},
				FinishReason: &finishReason,
			},
		},
		Usage: usage,
	}
}

// ToModelList 把模型 ID 列表包装为 /v1/models 响应。
func ToModelList(ids []string, ownedBy string, now time.Time) OpenAIModelList {
	data := make([]OpenAIModel, 0, len(ids))
	created := now.Unix()
	for _, id := range ids {
		data = append(data, OpenAIModel{
			ID:      id,
			Object:  ObjectModel,
			Created: created,
			OwnedBy: ownedBy,
		})
	}
	return OpenAIModelList{Object: ObjectList, Data: data}
}
