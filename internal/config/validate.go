package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Validate 检查必填字段与取值范围，返回所有问题的合并错误。
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Listen) == "" {
		errs = append(errs, fmt.Errorf("server.listen is required"))
	}
	if c.Server.ReadHeaderTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.read_header_timeout must be >= 0, got %s", c.Server.ReadHeaderTimeout))
	}
	if c.Upstream.ResponseHeaderTimeout < 0 {
		errs = append(errs, fmt.Errorf("upstream.response_header_timeout must be >= 0, got %s", c.Upstream.ResponseHeaderTimeout))
	}

	for field, raw := range map[string]string{
		"upstream.identity_url": c.Upstream.IdentityURL,
		"upstream.chat_url":     c.Upstream.ChatURL,
	} {
		if err := validateHTTPURL(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Auth.Source)) {
	case "", "anon", "env", "auto":
	default:
		errs = append(errs, fmt.Errorf("auth.source must be \"anon\", \"env\", or \"auto\", got %q", c.Auth.Source))
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"json\" or \"text\", got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func validateHTTPURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
