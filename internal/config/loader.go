package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath 指定配置文件路径的环境变量。
const EnvConfigPath = "IRONB2O_CONFIG"

// Load 按以下顺序加载配置：
//  1. 内置默认值
//  2. YAML 文件（configPath 参数、IRONB2O_CONFIG、./config.yaml）
//  3. IRONB2O_* 环境变量
//  4. 校验
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if filePath := discoverConfigFile(configPath); filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// loadYAMLFile 中未出现的字段保留默认值。
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"IRONB2O_LISTEN", &cfg.Server.Listen},
		{"IRONB2O_BASE_PATH", &cfg.Server.BasePath},
		{"IRONB2O_METRICS_LISTEN", &cfg.Server.MetricsListen},
		{"IRONB2O_IDENTITY_URL", &cfg.Upstream.IdentityURL},
		{"IRONB2O_CHAT_URL", &cfg.Upstream.ChatURL},
		{"IRONB2O_USER_AGENT", &cfg.Upstream.UserAgent},
		{"IRONB2O_AUTH_SOURCE", &cfg.Auth.Source},
		{"IRONB2O_LOG_LEVEL", &cfg.Log.Level},
		{"IRONB2O_LOG_FORMAT", &cfg.Log.Format},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.key)); v != "" {
			*o.target = v
		}
	}

	// IRONB2O_MODELS: 逗号分隔的模型 ID
	if v := os.Getenv("IRONB2O_MODELS"); strings.TrimSpace(v) != "" {
		var models []string
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				models = append(models, id)
			}
		}
		cfg.Models = models
	}
}
