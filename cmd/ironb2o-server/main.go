package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/LubyRuffy/ironb2o/auth"
	"github.com/LubyRuffy/ironb2o/backend"
	"github.com/LubyRuffy/ironb2o/internal/config"
	"github.com/LubyRuffy/ironb2o/internal/logging"
	"github.com/LubyRuffy/ironb2o/openaihttp"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file path (default: $IRONB2O_CONFIG or ./config.yaml)")
		listen     = flag.String("listen", "", "listen address (overrides config)")
		basePath   = flag.String("base-path", "", "base path prefix (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	applyFlagOverrides(cfg, *listen, *basePath)

	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, nil); err != nil {
		log.Fatalf("setup logging failed: %v", err)
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	client := backend.NewClient(backend.ClientConfig{
		IdentityURL: cfg.Upstream.IdentityURL,
		ChatURL:     cfg.Upstream.ChatURL,
		HTTPClient:  backend.NewHTTPClient(cfg.Upstream.ResponseHeaderTimeout),
		UserAgent:   cfg.Upstream.UserAgent,
		Observer:    openaihttp.ObserveUpstream,
	})
	provider, err := auth.NewProvider(cfg.Auth.Source, client)
	if err != nil {
		log.Fatalf("invalid auth source: %v", err)
	}

	r, err := openaihttp.NewRouter(openaihttp.Config{
		BasePath: cfg.Server.BasePath,
		Client:   client,
		AuthProvider: func(ctx context.Context) (string, string, error) {
			return provider.Auth(ctx)
		},
		Models: cfg.Models,
	})
	if err != nil {
		log.Fatalf("register routes failed: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	var metricsSrv *http.Server
	if cfg.Server.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.Server.MetricsListen,
			Handler:           mux,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		}
		go func() {
			log.Infof("metrics listening on http://%s/metrics", addrForLocalClient(cfg.Server.MetricsListen))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	local := addrForLocalClient(cfg.Server.Listen)
	log.WithFields(log.Fields{
		"auth_source": cfg.Auth.Source,
		"chat_url":    cfg.Upstream.ChatURL,
	}).Infof("ironb2o server listening on http://%s%s", cfg.Server.Listen, cfg.Server.BasePath)
	log.Infof("try: curl http://%s%s/models", local, cfg.Server.BasePath)
	log.Infof("try: curl http://%s%s/chat/completions -H 'Content-Type: application/json' -d '{\"model\":\"openai/gpt-4o-mini\",\"messages\":[{\"role\":\"user\",\"content\":\"hi\"}],\"stream\":false}'", local, cfg.Server.BasePath)
	log.Infof("OpenAI SDK base_url: http://%s%s", local, cfg.Server.BasePath)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(ctx)
	}
}

// applyFlagOverrides 用非空的命令行参数覆盖配置文件与环境变量中的值。
func applyFlagOverrides(cfg *config.Config, listen, basePath string) {
	if listen = strings.TrimSpace(listen); listen != "" {
		cfg.Server.Listen = listen
	}
	if basePath = strings.TrimSpace(basePath); basePath != "" {
		cfg.Server.BasePath = basePath
	}
}

// addrForLocalClient 把监听地址转换为本机客户端可以访问的地址，通配地址替换为 127.0.0.1。
func addrForLocalClient(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
