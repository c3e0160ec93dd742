package backend

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Event 是一条上游 SSE 记录。
type Event struct {
	ResponseMessageID string
	Model             string
	// Text 为本条记录携带的增量文本，可能为空。
	Text string
	// Usage 为原始 JSON，仅在终止记录中出现；null 视为不存在。
	Usage json.RawMessage
}

// HasUsage 判断该记录是否为携带 usage 的终止记录。
func (e Event) HasUsage() bool {
	return len(e.Usage) > 0
}

// ParseEvent 解析一条 data 负载。非法 JSON 与 null 返回 ErrMalformedEvent；
// 其它非对象的合法 JSON（数字、字符串、数组等）视为各字段均为空的记录。
// 调用方不得把 DoneSentinel 传入。
func ParseEvent(data string) (Event, error) {
	if !gjson.Valid(data) {
		return Event{}, fmt.Errorf("%w: invalid json", ErrMalformedEvent)
	}
	root := gjson.Parse(data)
	if root.Type == gjson.Null {
		return Event{}, fmt.Errorf("%w: null record", ErrMalformedEvent)
	}
	if !root.IsObject() {
		return Event{}, nil
	}

	ev := Event{
		ResponseMessageID: root.Get("responseMessageId").String(),
		Model:             root.Get("model").String(),
	}
	if text := root.Get("text"); text.Type == gjson.String {
		ev.Text = text.String()
	}
	if usage := root.Get("usage"); usage.Exists() && usage.Type != gjson.Null {
		ev.Usage = json.RawMessage(usage.Raw)
	}
	return ev, nil
}
