package openaihttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/LubyRuffy/ironb2o/backend"
	"github.com/LubyRuffy/ironb2o/openaiapi"
	log "github.com/sirupsen/logrus"
)

// ErrAggregationIncomplete 表示上游流结束时没有出现携带 usage 的终止记录。
// 即使已经收到了文本，也不会返回部分结果。
var ErrAggregationIncomplete = errors.New("upstream stream ended without usage record")

// aggregateChat 读完整个上游流（parser 应为 drain 模式，[DONE] 之后的记录同样计入），
// 按到达顺序拼接 text，并以最后一条带 usage 的记录作为终止记录。
func aggregateChat(ctx context.Context, parser *backend.Parser, now func() time.Time, logger *log.Entry) (openaiapi.OpenAIChatCompletion, error) {
	var (
		content  strings.Builder
		terminal *backend.Event
	)

	for {
		if err := ctx.Err(); err != nil {
			return openaiapi.OpenAIChatCompletion{}, err
		}

		data, err := parser.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return openaiapi.OpenAIChatCompletion{}, fmt.Errorf("failed to read upstream stream: %w", err)
		}
		if backend.IsDone(data) {
			continue
		}

		ev, err := backend.ParseEvent(data)
		if err != nil {
			malformedRecordsTotal.Inc()
			logger.WithError(err).Debug("skip upstream record")
			continue
		}
		content.WriteString(ev.Text)
		if ev.HasUsage() {
			evCopy := ev
			terminal = &evCopy
		}
	}

	if terminal == nil {
		return openaiapi.OpenAIChatCompletion{}, ErrAggregationIncomplete
	}
	return openaiapi.ToChatCompletion(terminal.ResponseMessageID, terminal.Model, content.String(), terminal.Usage, now()), nil
}
