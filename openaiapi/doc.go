// Package openaiapi 提供 OpenAI v1 兼容接口的通用数据结构与辅助函数。
//
// 该包只关注协议层：响应 JSON 结构、SSE chunk 结构、错误结构以及少量构建函数。
// 上游（iron.cx）适配在 backend 与 openaihttp 包中实现。
//
// 示例：创建一个 SSE chunk 并序列化输出
//
//	chunk := openaiapi.ToChatChunk("msg_xxx", "openai/gpt-4o-mini", "hello", nil, time.Now())
//	data, _ := json.Marshal(chunk)
//	fmt.Fprintf(w, "data: %s\n\n", data)
package openaiapi
