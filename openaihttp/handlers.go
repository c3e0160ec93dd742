package openaihttp

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/LubyRuffy/ironb2o"
	"github.com/LubyRuffy/ironb2o/backend"
)

func Handlers(cfg Config) (modelsHandler http.HandlerFunc, chatHandler http.HandlerFunc, err error) {
	resolved := resolveConfig(cfg)

	compat, err := newCompatHandler(compatConfig{
		Now:              resolved.Now,
		WriteJSON:        writeJSON,
		WriteOpenAIError: writeOpenAIError,
		Client:           resolved.Client,
		AuthProvider:     resolved.AuthProvider,
		Models:           resolved.Models,
	})
	if err != nil {
		return nil, nil, err
	}

	return compat.handleModels, compat.handleChatCompletions, nil
}

type resolvedConfig struct {
	BasePath     string
	Client       *backend.Client
	AuthProvider AuthProvider
	Models       []string
	Now          func() time.Time
}

func resolveConfig(cfg Config) resolvedConfig {
	client := cfg.Client
	if client == nil {
		client = backend.NewClient(backend.ClientConfig{
			IdentityURL: strings.TrimSpace(cfg.IdentityURL),
			ChatURL:     strings.TrimSpace(cfg.ChatURL),
			HTTPClient:  cfg.HTTPClient,
			UserAgent:   strings.TrimSpace(cfg.UserAgent),
			Observer:    ObserveUpstream,
		})
	}

	authProvider := cfg.AuthProvider
	if authProvider == nil {
		authProvider = func(ctx context.Context) (string, string, error) {
			token, err := client.AcquireToken(ctx)
			if err != nil {
				return "", "", err
			}
			return token.Value, token.AnonUserID, nil
		}
	}

	models := make([]string, 0, len(cfg.Models))
	for _, id := range cfg.Models {
		if id = strings.TrimSpace(id); id != "" {
			models = append(models, id)
		}
	}
	if len(models) == 0 {
		models = ironb2o.PresetModels()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return resolvedConfig{
		BasePath:     normalizeBasePath(cfg.BasePath),
		Client:       client,
		AuthProvider: authProvider,
		Models:       models,
		Now:          now,
	}
}
