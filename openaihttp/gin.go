package openaihttp

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// RegisterGinRoutes 注册 models 与 chat.completions 路由。
// 两个路由都接受任意方法：models 不校验方法，chat.completions 在 handler 内返回 405。
func RegisterGinRoutes(r gin.IRouter, cfg Config) error {
	if r == nil {
		return fmt.Errorf("router is nil")
	}
	modelsHandler, chatHandler, err := Handlers(cfg)
	if err != nil {
		return err
	}

	basePath := normalizeBasePath(cfg.BasePath)
	r.Any(joinPath(basePath, "/models"), gin.WrapF(modelsHandler))
	r.Any(joinPath(basePath, "/chat/completions"), gin.WrapF(chatHandler))
	return nil
}

// NewRouter 返回带请求 ID、访问日志、panic 恢复与 404 处理的完整 gin.Engine。
func NewRouter(cfg Config) (*gin.Engine, error) {
	r := gin.New()
	r.Use(requestIDMiddleware(), accessLogMiddleware(), recoveryMiddleware())
	r.NoRoute(notFound)

	if err := RegisterGinRoutes(r, cfg); err != nil {
		return nil, err
	}
	return r, nil
}
