package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// TokenSource 返回本次请求使用的 bearer token；每次调用都应生成新的匿名身份。
type TokenSource func(ctx context.Context) (string, error)

type ChatModelConfig struct {
	Model  string
	Client *Client
	// TokenSource 可选，nil 时使用 Client.AcquireToken。
	TokenSource TokenSource
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
}

// ChatModel 是基于 iron.cx chat SSE 接口的 ToolCallingChatModel 实现。
type ChatModel struct {
	config ChatModelConfig
	tools  []*schema.ToolInfo
}

func NewChatModel(config ChatModelConfig) (*ChatModel, error) {
	if strings.TrimSpace(config.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if config.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if config.TokenSource == nil {
		client := config.Client
		config.TokenSource = func(ctx context.Context) (string, error) {
			token, err := client.AcquireToken(ctx)
			if err != nil {
				return "", err
			}
			return token.Value, nil
		}
	}
	return &ChatModel{config: config}, nil
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.Message, error) {
	var (
		content  strings.Builder
		terminal *Event
	)
	err := m.doStreamRequest(ctx, input, true, func(ev Event) error {
		content.WriteString(ev.Text)
		if ev.HasUsage() {
			evCopy := ev
			terminal = &evCopy
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := schema.AssistantMessage(content.String(), nil)
	if terminal != nil {
		msg.ResponseMeta = &schema.ResponseMeta{
			FinishReason: "stop",
			Usage:        tokenUsageFromRaw(terminal.Usage),
		}
	}
	return msg, nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	sr, sw := schema.Pipe[*schema.Message](64)
	go func() {
		defer sw.Close()
		err := m.doStreamRequest(ctx, input, false, func(ev Event) error {
			if ev.Text == "" {
				return nil
			}
			if closed := sw.Send(&schema.Message{Role: schema.Assistant, Content: ev.Text}, nil); closed {
				return errReaderClosed
			}
			return nil
		})
		if err != nil && !errors.Is(err, errReaderClosed) {
			sw.Send(nil, err)
		}
	}()
	return sr, nil
}

var errReaderClosed = errors.New("stream reader closed")

func (m *ChatModel) WithTools(tools []*schema.ToolInfo) (einoModel.ToolCallingChatModel, error) {
	cloned := *m
	cloned.tools = tools
	return &cloned, nil
}

// doStreamRequest 逐条回调上游记录；drain 为 false 时在 [DONE] 处结束。
func (m *ChatModel) doStreamRequest(ctx context.Context, input []*schema.Message, drain bool, onEvent func(Event) error) error {
	payload, err := m.buildRequestPayload(input)
	if err != nil {
		return err
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode backend request: %w", err)
	}

	token, err := m.config.TokenSource(ctx)
	if err != nil {
		return err
	}

	body, err := m.config.Client.SubmitChat(ctx, bodyBytes, token)
	if err != nil {
		return err
	}
	defer body.Close()

	var parser *Parser
	if drain {
		parser = NewDrainParser(body)
	} else {
		parser = NewParser(body)
	}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, err := parser.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read backend stream: %w", err)
		}
		if IsDone(data) {
			continue
		}
		ev, err := ParseEvent(data)
		if err != nil {
			continue
		}
		if err := onEvent(ev); err != nil {
			return err
		}
	}
}

type requestMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type requestTool struct {
	Type     string              `json:"type"`
	Function requestToolFunction `json:"function"`
}

type requestToolFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type requestPayload struct {
	Model       string           `json:"model"`
	Messages    []requestMessage `json:"messages"`
	Tools       []requestTool    `json:"tools,omitempty"`
	Stream      bool             `json:"stream"`
	Temperature *float32         `json:"temperature,omitempty"`
	TopP        *float32         `json:"top_p,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
}

func (m *ChatModel) buildRequestPayload(input []*schema.Message) (*requestPayload, error) {
	messages := make([]requestMessage, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		content := resolveMessageContent(msg)
		if content == "" {
			continue
		}
		messages = append(messages, requestMessage{
			Role:       string(msg.Role),
			Content:    content,
			ToolCallID: msg.ToolCallID,
		})
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no valid messages to send")
	}

	tools := make([]requestTool, 0, len(m.tools))
	for _, tool := range m.tools {
		if tool == nil || strings.TrimSpace(tool.Name) == "" {
			continue
		}
		tools = append(tools, requestTool{
			Type: "function",
			Function: requestToolFunction{
				Name:        strings.TrimSpace(tool.Name),
				Description: tool.Desc,
			},
		})
	}

	return &requestPayload{
		Model:       m.config.Model,
		Messages:    messages,
		Tools:       tools,
		Stream:      true,
		Temperature: m.config.Temperature,
		TopP:        m.config.TopP,
		MaxTokens:   m.config.MaxTokens,
	}, nil
}

func resolveMessageContent(msg *schema.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	if len(msg.UserInputMultiContent) > 0 {
		var builder strings.Builder
		for _, part := range msg.UserInputMultiContent {
			if part.Type == schema.ChatMessagePartTypeText {
				builder.WriteString(part.Text)
			}
		}
		return builder.String()
	}
	return ""
}

// tokenUsageFromRaw 尽量把上游 usage 映射为 OpenAI 风格的 token 统计，无法识别时返回 nil。
func tokenUsageFromRaw(raw json.RawMessage) *schema.TokenUsage {
	var usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	}
	if err := json.Unmarshal(raw, &usage); err != nil {
		return nil
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	if usage.TotalTokens == 0 {
		return nil
	}
	return &schema.TokenUsage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
}
