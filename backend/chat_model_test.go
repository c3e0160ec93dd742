package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"
)

func newFakeUpstream(t *testing.T, sse string, check func(payload map[string]any)) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/identity", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token":"tok"}`)
	})
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if check != nil {
			check(payload)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sse)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		IdentityURL: srv.URL + "/identity",
		ChatURL:     srv.URL + "/chat",
		HTTPClient:  srv.Client(),
	})
}

const fakeSSE = "" +
	"data: {\"responseMessageId\":\"msg_1\",\"model\":\"m\",\"text\":\"hel\"}\n\n" +
	"data: {broken\n\n" +
	"data: {\"responseMessageId\":\"msg_1\",\"model\":\"m\",\"text\":\"lo\"}\n\n" +
	"data: {\"responseMessageId\":\"msg_1\",\"model\":\"m\",\"usage\":{\"prompt_tokens\":2,\"completion_tokens\":3}}\n\n" +
	"data: [DONE]\n\n"

func TestChatModel_Generate(t *testing.T) {
	client := newFakeUpstream(t, fakeSSE, func(payload map[string]any) {
		require.Equal(t, "m", payload["model"])
		require.Equal(t, true, payload["stream"])
		messages, _ := payload["messages"].([]any)
		require.Len(t, messages, 2)
	})

	m, err := NewChatModel(ChatModelConfig{Model: "m", Client: client})
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("be brief"),
		schema.UserMessage("hi"),
	})
	require.NoError(t, err)
	require.Equal(t, "hello", msg.Content)
	require.NotNil(t, msg.ResponseMeta)
	require.Equal(t, "stop", msg.ResponseMeta.FinishReason)
	require.NotNil(t, msg.ResponseMeta.Usage)
	require.Equal(t, 5, msg.ResponseMeta.Usage.TotalTokens)
}

func TestChatModel_GenerateReadsPastDone(t *testing.T) {
	sse := "" +
		"data: {\"responseMessageId\":\"r\",\"model\":\"m\",\"text\":\"a\"}\n\n" +
		"data: [DONE]\n\n" +
		"data: {\"responseMessageId\":\"r\",\"model\":\"m\",\"text\":\"b\",\"usage\":{\"total_tokens\":2}}\n\n"
	m, err := NewChatModel(ChatModelConfig{Model: "m", Client: newFakeUpstream(t, sse, nil)})
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	require.Equal(t, "ab", msg.Content)
	require.NotNil(t, msg.ResponseMeta)
	require.Equal(t, 2, msg.ResponseMeta.Usage.TotalTokens)
}

func TestChatModel_Stream(t *testing.T) {
	client := newFakeUpstream(t, fakeSSE, nil)
	m, err := NewChatModel(ChatModelConfig{Model: "m", Client: client})
	require.NoError(t, err)

	sr, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer sr.Close()

	var deltas []string
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		deltas = append(deltas, msg.Content)
	}
	require.Equal(t, []string{"hel", "lo"}, deltas)
}

func TestChatModel_TokenSourceError(t *testing.T) {
	client := newFakeUpstream(t, fakeSSE, nil)
	m, err := NewChatModel(ChatModelConfig{
		Model:  "m",
		Client: client,
		TokenSource: func(ctx context.Context) (string, error) {
			return "", ErrUpstreamAuth
		},
	})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.ErrorIs(t, err, ErrUpstreamAuth)
}

func TestChatModel_WithToolsForwardsFunctionNames(t *testing.T) {
	client := newFakeUpstream(t, fakeSSE, func(payload map[string]any) {
		tools, _ := payload["tools"].([]any)
		require.Len(t, tools, 1)
		fn := tools[0].(map[string]any)["function"].(map[string]any)
		require.Equal(t, "lookup", fn["name"])
	})
	m, err := NewChatModel(ChatModelConfig{Model: "m", Client: client})
	require.NoError(t, err)

	withTools, err := m.WithTools([]*schema.ToolInfo{{Name: "lookup", Desc: "look things up"}, nil})
	require.NoError(t, err)
	_, err = withTools.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
}

func TestBuildRequestPayload_RejectsEmptyInput(t *testing.T) {
	m, err := NewChatModel(ChatModelConfig{Model: "m", Client: NewClient(ClientConfig{})})
	require.NoError(t, err)

	_, err = m.buildRequestPayload([]*schema.Message{nil, {Role: schema.User}})
	require.Error(t, err)
}

func TestNewChatModel_Validation(t *testing.T) {
	_, err := NewChatModel(ChatModelConfig{Client: NewClient(ClientConfig{})})
	require.Error(t, err)
	_, err = NewChatModel(ChatModelConfig{Model: "m"})
	require.Error(t, err)
}

func TestTokenUsageFromRaw(t *testing.T) {
	require.Nil(t, tokenUsageFromRaw(json.RawMessage(`{"foo":1}`)))
	require.Nil(t, tokenUsageFromRaw(json.RawMessage(`[]`)))
	usage := tokenUsageFromRaw(json.RawMessage(`{"prompt_tokens":1,"completion_tokens":2,"total_tokens":4}`))
	require.Equal(t, 4, usage.TotalTokens)
}
