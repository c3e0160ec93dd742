// Package config 加载 ironb2o 服务端配置：默认值 -> YAML 文件 -> IRONB2O_* 环境变量 -> 校验。
package config

import (
	"time"

	"github.com/LubyRuffy/ironb2o"
)

// Config 是服务端的完整配置。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	// Models 覆盖 /v1/models 输出的模型列表，为空时使用内置的 8 个模型。
	Models []string `yaml:"models"`
}

type ServerConfig struct {
	Listen   string `yaml:"listen"`
	BasePath string `yaml:"base_path"`
	// MetricsListen 为空时不启动 /metrics。
	MetricsListen     string        `yaml:"metrics_listen"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type UpstreamConfig struct {
	IdentityURL string `yaml:"identity_url"`
	ChatURL     string `yaml:"chat_url"`
	UserAgent   string `yaml:"user_agent"`
	// ResponseHeaderTimeout 只限制等待响应头的时间，流式响应体不受整体超时约束。
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`
}

type AuthConfig struct {
	// Source: anon|env|auto
	Source string `yaml:"source"`
}

type LogConfig struct {
	// Level: debug|info|warn|error
	Level string `yaml:"level"`
	// Format: json|text
	Format string `yaml:"format"`
}

// Defaults 返回内置默认配置。
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Listen:            "127.0.0.1:8080",
			BasePath:          "/v1",
			ReadHeaderTimeout: 10 * time.Second,
		},
		Upstream: UpstreamConfig{
			IdentityURL:           ironb2o.DefaultIdentityURL,
			ChatURL:               ironb2o.DefaultChatURL,
			UserAgent:             ironb2o.DefaultUserAgent,
			ResponseHeaderTimeout: 60 * time.Second,
		},
		Auth: AuthConfig{Source: "anon"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}
