// Package openaihttp 提供基于 iron.cx chat SSE 端点的 OpenAI v1 兼容 HTTP 处理器。
//
// 该包对外只暴露：
// - net/http 形式的 handlers（models/chat.completions）
// - Gin 路由注册方法与带中间件的完整 Router
//
// 默认每个 chat 请求都会以新的匿名身份获取 token；也可以通过 AuthProvider 回调注入。
//
// 使用示例：
//
//	// net/http
//	modelsH, chatH, _ := openaihttp.Handlers(openaihttp.Config{})
//	mux.HandleFunc("/v1/models", modelsH)
//	mux.HandleFunc("/v1/chat/completions", chatH)
//
//	// gin
//	r, _ := openaihttp.NewRouter(openaihttp.Config{BasePath: "/v1"})
//	_ = http.ListenAndServe(":8080", r)
package openaihttp
