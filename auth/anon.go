package auth

import (
	"context"

	"github.com/LubyRuffy/ironb2o/backend"
)

// anonProvider 每次调用都会以新的匿名身份请求 identity 接口，不做任何缓存。
type anonProvider struct {
	client *backend.Client
}

func (p *anonProvider) Auth(ctx context.Context) (string, string, error) {
	token, err := p.client.AcquireToken(ctx)
	if err != nil {
		return "", "", err
	}
	return token.Value, token.AnonUserID, nil
}
