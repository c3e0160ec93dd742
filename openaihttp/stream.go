package openaihttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LubyRuffy/ironb2o/backend"
	"github.com/LubyRuffy/ironb2o/openaiapi"
	log "github.com/sirupsen/logrus"
)

const doneFrame = "data: [DONE]\n\n"

// writeChatStream 把上游记录逐条翻译为 chat.completion.chunk，每写一帧立即 flush。
// 解析失败的记录会被跳过；遇到 [DONE] 时写出结束帧并返回。
// 返回值 frames 不包含结束帧。
func (h *compatHandler) writeChatStream(
	ctx context.Context,
	w http.ResponseWriter,
	flusher http.Flusher,
	logger *log.Entry,
	parser *backend.Parser,
) (frames int, err error) {
	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		if err := ctx.Err(); err != nil {
			return frames, err
		}

		data, err := parser.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			return frames, fmt.Errorf("failed to read upstream stream: %w", err)
		}

		if backend.IsDone(data) {
			if _, err := io.WriteString(w, doneFrame); err != nil {
				return frames, fmt.Errorf("failed to write done frame: %w", err)
			}
			flusher.Flush()
			return frames, nil
		}

		ev, err := backend.ParseEvent(data)
		if err != nil {
			malformedRecordsTotal.Inc()
			logger.WithError(err).Debug("skip upstream record")
			continue
		}

		payload, err := json.Marshal(toChatChunk(ev, h.now()))
		if err != nil {
			return frames, fmt.Errorf("failed to encode chunk: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return frames, fmt.Errorf("failed to write chunk: %w", err)
		}
		flusher.Flush()
		frames++
		streamFramesTotal.Inc()
	}
}

func toChatChunk(ev backend.Event, now time.Time) openaiapi.OpenAIChatChunk {
	var finishReason *string
	if ev.HasUsage() {
		stop := openaiapi.FinishReasonStop
		finishReason = &stop
	}
	return openaiapi.ToChatChunk(ev.ResponseMessageID, ev.Model, ev.Text, finishReason, now)
}
