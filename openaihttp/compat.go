package openaihttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LubyRuffy/ironb2o"
	"github.com/LubyRuffy/ironb2o/backend"
	"github.com/LubyRuffy/ironb2o/openaiapi"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

type httpError struct {
	Status  int
	Message string
	Err     error
}

func (e *httpError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

func (e *httpError) Unwrap() error { return e.Err }

const (
	modeStream    = "stream"
	modeAggregate = "aggregate"
)

// outcome 标签值，对应 ironb2o_chat_completions_total。
const (
	outcomeOK            = "ok"
	outcomeBadRequest    = "bad_request"
	outcomeAuthError     = "auth_error"
	outcomeUpstreamError = "upstream_error"
	outcomeIncomplete    = "incomplete"
	outcomeClientGone    = "client_gone"
	outcomeInternalError = "internal_error"
)

const (
	maxRequestBodyBytes = 16 << 20

	msgAuthFailed         = "failed to get anonymous user token"
	msgChatFailed         = "failed to get chat completions"
	msgAggregationFailed  = "failed to construct non-streaming response"
	msgStreamNotSupported = "streaming not supported"
)

type compatConfig struct {
	Now              func() time.Time
	WriteJSON        func(w http.ResponseWriter, data interface{})
	WriteOpenAIError func(w http.ResponseWriter, statusCode int, message string)
	Client           *backend.Client
	AuthProvider     AuthProvider
	Models           []string
}

type compatHandler struct {
	now              func() time.Time
	writeJSON        func(w http.ResponseWriter, data interface{})
	writeOpenAIError func(w http.ResponseWriter, statusCode int, message string)
	client           *backend.Client
	authProvider     AuthProvider
	models           []string
}

func newCompatHandler(cfg compatConfig) (*compatHandler, error) {
	if cfg.WriteJSON == nil {
		return nil, fmt.Errorf("WriteJSON is required")
	}
	if cfg.WriteOpenAIError == nil {
		return nil, fmt.Errorf("WriteOpenAIError is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("Client is required")
	}
	if cfg.AuthProvider == nil {
		return nil, fmt.Errorf("AuthProvider is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.Models) == 0 {
		cfg.Models = ironb2o.PresetModels()
	}
	return &compatHandler{
		now:              cfg.Now,
		writeJSON:        cfg.WriteJSON,
		writeOpenAIError: cfg.WriteOpenAIError,
		client:           cfg.Client,
		authProvider:     cfg.AuthProvider,
		models:           cfg.Models,
	}, nil
}

// handleModels 不校验请求方法。
func (h *compatHandler) handleModels(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, openaiapi.ToModelList(h.models, ironb2o.ModelOwner, h.now()))
}

func (h *compatHandler) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeOpenAIError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	logger := requestLogger(r)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		h.fail(w, logger, modeAggregate, outcomeBadRequest, &httpError{
			Status:  http.StatusBadGateway,
			Message: "failed to read request body: " + err.Error(),
			Err:     err,
		})
		return
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		h.fail(w, logger, modeAggregate, outcomeBadRequest, &httpError{
			Status:  http.StatusBadGateway,
			Message: "invalid request body: expected a JSON object",
		})
		return
	}

	stream := isTruthy(gjson.GetBytes(body, "stream"))
	if model := gjson.GetBytes(body, "model").String(); model != "" && !ironb2o.IsPresetModelID(model) {
		logger.WithField("model", model).Debug("model is not in the preset catalog, forwarding as-is")
	}
	mode := modeAggregate
	if stream {
		mode = modeStream
	}

	var flusher http.Flusher
	if stream {
		var ok bool
		if flusher, ok = w.(http.Flusher); !ok {
			h.fail(w, logger, mode, outcomeInternalError, &httpError{
				Status:  http.StatusInternalServerError,
				Message: msgStreamNotSupported,
			})
			return
		}
	}

	payload, err := backend.ForceStream(body)
	if err != nil {
		h.fail(w, logger, mode, outcomeBadRequest, err)
		return
	}

	upstream, err := h.openUpstream(r.Context(), logger, payload)
	if err != nil {
		outcome := outcomeUpstreamError
		if errors.Is(err, backend.ErrUpstreamAuth) {
			outcome = outcomeAuthError
		}
		h.fail(w, logger, mode, outcome, err)
		return
	}
	defer upstream.Close()

	if stream {
		frames, err := h.writeChatStream(r.Context(), w, flusher, logger, backend.NewParser(upstream))
		if err != nil {
			outcome := outcomeUpstreamError
			if r.Context().Err() != nil {
				outcome = outcomeClientGone
			}
			logger.WithError(err).WithField("frames", frames).Warn("chat stream aborted")
			chatCompletionsTotal.WithLabelValues(mode, outcome).Inc()
			return
		}
		logger.WithField("frames", frames).Debug("chat stream finished")
		chatCompletionsTotal.WithLabelValues(mode, outcomeOK).Inc()
		return
	}

	completion, err := aggregateChat(r.Context(), backend.NewDrainParser(upstream), h.now, logger)
	if err != nil {
		outcome := outcomeUpstreamError
		if errors.Is(err, ErrAggregationIncomplete) {
			outcome = outcomeIncomplete
			err = &httpError{Status: http.StatusInternalServerError, Message: msgAggregationFailed, Err: err}
		}
		h.fail(w, logger, mode, outcome, err)
		return
	}
	chatCompletionsTotal.WithLabelValues(mode, outcomeOK).Inc()
	h.writeJSON(w, completion)
}

// openUpstream 先获取 token，再提交 chat 请求；两步都不重试。
func (h *compatHandler) openUpstream(ctx context.Context, logger *log.Entry, payload []byte) (io.ReadCloser, error) {
	token, anonUserID, err := h.authProvider(ctx)
	if err != nil {
		if !errors.Is(err, backend.ErrUpstreamAuth) {
			err = fmt.Errorf("%w: %w", backend.ErrUpstreamAuth, err)
		}
		return nil, &httpError{Status: http.StatusInternalServerError, Message: msgAuthFailed, Err: err}
	}
	if anonUserID != "" {
		logger = logger.WithField("anon_user_id", anonUserID)
	}
	logger.Debug("upstream token acquired")

	body, err := h.client.SubmitChat(ctx, payload, token)
	if err != nil {
		return nil, &httpError{Status: http.StatusInternalServerError, Message: msgChatFailed, Err: err}
	}
	return body, nil
}

func (h *compatHandler) fail(w http.ResponseWriter, logger *log.Entry, mode, outcome string, err error) {
	status := httpStatusFromError(err)
	chatCompletionsTotal.WithLabelValues(mode, outcome).Inc()
	logger.WithError(err).WithFields(log.Fields{
		"status":  status,
		"mode":    mode,
		"outcome": outcome,
	}).Warn("chat completion failed")
	h.writeOpenAIError(w, status, httpMessageFromError(err))
}

// isTruthy 按 JavaScript 的真值规则判断 JSON 值：false、null、0、空字符串与缺失为假，
// 其余（包括 "false" 字符串、空对象与空数组）为真。
func isTruthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True, gjson.JSON:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	default:
		return false
	}
}

// httpStatusFromError 未标注状态码的错误视为未处理异常，返回 502。
func httpStatusFromError(err error) int {
	var httpErr *httpError
	if errors.As(err, &httpErr) && httpErr != nil && httpErr.Status != 0 {
		return httpErr.Status
	}
	return http.StatusBadGateway
}

func httpMessageFromError(err error) string {
	var httpErr *httpError
	if errors.As(err, &httpErr) && httpErr != nil && strings.TrimSpace(httpErr.Message) != "" {
		return httpErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
