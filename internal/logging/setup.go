// Package logging 配置全局 logrus logger。
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var logMux sync.Mutex

// Setup 按 level/format 配置全局 logrus，out 为 nil 时写到 stdout。
// 可重复调用，最后一次生效。
func Setup(level, format string, out io.Writer) error {
	logMux.Lock()
	defer logMux.Unlock()

	lvl := log.InfoLevel
	if s := strings.TrimSpace(level); s != "" {
		parsed, err := log.ParseLevel(s)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		lvl = parsed
	}

	var formatter log.Formatter
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		formatter = &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	case "", "text":
		formatter = &log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		}
	default:
		return fmt.Errorf("unsupported log format: %s", format)
	}

	if out == nil {
		out = os.Stdout
	}
	log.SetFormatter(formatter)
	log.SetLevel(lvl)
	log.SetOutput(out)
	return nil
}
