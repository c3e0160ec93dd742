package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LubyRuffy/ironb2o"
	"github.com/google/uuid"
	"github.com/tidwall/sjson"
)

const (
	maxErrorBodyBytes = 8 << 10

	// DefaultResponseHeaderTimeout 是等待上游响应头的默认超时。
	// 不设置整体超时，避免截断长时间的流式响应。
	DefaultResponseHeaderTimeout = 60 * time.Second
)

// Endpoint 标识一次上游调用，用于 Observer 回调。
type Endpoint string

const (
	EndpointIdentity Endpoint = "identity"
	EndpointChat     Endpoint = "chat"
)

// Observer 在每次上游调用结束后被调用；status 为 0 表示请求未拿到响应。
type Observer func(endpoint Endpoint, status int, elapsed time.Duration)

type ClientConfig struct {
	IdentityURL string
	ChatURL     string
	// HTTPClient 可选，nil 时使用 NewHTTPClient(DefaultResponseHeaderTimeout)。
	HTTPClient *http.Client
	UserAgent  string
	// NewAnonUserID 生成匿名用户标识，每次 AcquireToken 调用一次；默认 "anon_<uuid>"。
	NewAnonUserID func() string
	Observer      Observer
}

// Token 是一次 identity 调用得到的 bearer token 及其对应的匿名用户。
type Token struct {
	Value      string
	AnonUserID string
}

// Client 负责两个上游调用：获取匿名 token、提交 chat 请求。
// Client 不缓存任何身份信息，可被多个请求并发使用。
type Client struct {
	config ClientConfig
}

func NewClient(config ClientConfig) *Client {
	if strings.TrimSpace(config.IdentityURL) == "" {
		config.IdentityURL = ironb2o.DefaultIdentityURL
	}
	if strings.TrimSpace(config.ChatURL) == "" {
		config.ChatURL = ironb2o.DefaultChatURL
	}
	if strings.TrimSpace(config.UserAgent) == "" {
		config.UserAgent = ironb2o.DefaultUserAgent
	}
	if config.HTTPClient == nil {
		config.HTTPClient = NewHTTPClient(DefaultResponseHeaderTimeout)
	}
	if config.NewAnonUserID == nil {
		config.NewAnonUserID = NewAnonUserID
	}
	return &Client{config: config}
}

// NewHTTPClient 返回只限制响应头等待时间的 http.Client。
func NewHTTPClient(responseHeaderTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if responseHeaderTimeout > 0 {
		transport.ResponseHeaderTimeout = responseHeaderTimeout
	}
	return &http.Client{Transport: transport}
}

// NewAnonUserID 生成新的匿名用户标识。
func NewAnonUserID() string {
	return "anon_" + uuid.NewString()
}

type identityRequest struct {
	AnonUserID   string   `json:"anonUserId"`
	GeoCountry   string   `json:"geoCountry"`
	GeoLatitude  *float64 `json:"geoLatitude"`
	GeoLongitude *float64 `json:"geoLongitude"`
}

type identityResponse struct {
	Token string `json:"token"`
}

// AcquireToken 以新生成的匿名用户身份调用 identity 接口并返回 token。
func (c *Client) AcquireToken(ctx context.Context) (Token, error) {
	anonUserID := c.config.NewAnonUserID()
	bodyBytes, err := json.Marshal(identityRequest{
		AnonUserID: anonUserID,
		// 上游接收字符串 "null" 作为未知国家。
		GeoCountry: "null",
	})
	if err != nil {
		return Token{}, fmt.Errorf("%w: failed to encode identity request: %v", ErrUpstreamAuth, err)
	}

	resp, err := c.post(ctx, EndpointIdentity, c.config.IdentityURL, bodyBytes, func(req *http.Request) {
		req.Header.Set("Accept", "application/json")
	})
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrUpstreamAuth, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return Token{}, newStatusError(ErrUpstreamAuth, resp)
	}

	var out identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Token{}, fmt.Errorf("%w: failed to decode identity response: %v", ErrUpstreamAuth, err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return Token{}, fmt.Errorf("%w: identity response missing token", ErrUpstreamAuth)
	}
	return Token{Value: out.Token, AnonUserID: anonUserID}, nil
}

// SubmitChat 以 token 作为 bearer 凭证提交 chat 请求，返回上游 SSE 响应体。
// payload 原样转发，调用方需先通过 ForceStream 设置 stream=true。
// 返回的 body 由调用方负责关闭。
func (c *Client) SubmitChat(ctx context.Context, payload []byte, token string) (io.ReadCloser, error) {
	resp, err := c.post(ctx, EndpointChat, c.config.ChatURL, payload, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "text/event-stream")
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamRequest, err)
	}
	if !isSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		return nil, newStatusError(ErrUpstreamRequest, resp)
	}
	return resp.Body, nil
}

// ForceStream 在不改动其它字段的前提下把 payload 的 stream 字段设置为 true。
func ForceStream(payload []byte) ([]byte, error) {
	out, err := sjson.SetBytes(payload, "stream", true)
	if err != nil {
		return nil, fmt.Errorf("failed to set stream on payload: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, endpoint Endpoint, url string, body []byte, decorate func(*http.Request)) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if decorate != nil {
		decorate(req)
	}

	start := time.Now()
	resp, err := c.config.HTTPClient.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if c.config.Observer != nil {
		c.config.Observer(endpoint, status, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	return resp, nil
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

func newStatusError(kind error, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &StatusError{Err: kind, StatusCode: resp.StatusCode, Body: string(body)}
}
