package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/LubyRuffy/ironb2o/backend"
)

// NewProvider 根据来源创建 Provider。
// source 允许：anon/env/auto；空值按 anon 处理。anon 与 auto 需要 client。
func NewProvider(source string, client *backend.Client) (Provider, error) {
	s := strings.ToLower(strings.TrimSpace(source))
	if s == "" {
		s = string(SourceAnon)
	}
	switch Source(s) {
	case SourceAnon:
		if client == nil {
			return nil, fmt.Errorf("auth source %s requires a backend client", s)
		}
		return &anonProvider{client: client}, nil
	case SourceEnv:
		return &envProvider{}, nil
	case SourceAuto:
		if client == nil {
			return nil, fmt.Errorf("auth source %s requires a backend client", s)
		}
		return &autoProvider{providers: []Provider{&envProvider{}, &anonProvider{client: client}}}, nil
	default:
		return nil, fmt.Errorf("unsupported auth source: %s", source)
	}
}

type autoProvider struct {
	providers []Provider
}

func (p *autoProvider) Auth(ctx context.Context) (string, string, error) {
	var lastErr error
	for _, provider := range p.providers {
		access, anonUserID, err := provider.Auth(ctx)
		if err == nil && strings.TrimSpace(access) != "" {
			return access, anonUserID, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return "", "", lastErr
	}
	return "", "", fmt.Errorf("no auth available")
}
