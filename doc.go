// Package ironb2o 提供将 iron.cx 聊天后端（匿名 token + SSE 流式接口）
// 转换为 OpenAI 兼容 API 的能力，方便第三方程序以 OpenAI SDK 的方式调用。
//
// 该仓库主要包含两类能力：
//  1. HTTP 兼容层：openaihttp 包导出 /v1/models、/v1/chat/completions handlers
//  2. SDK：backend 包提供可供 Eino/ADK 使用的 ToolCallingChatModel 实现
package ironb2o
