package openaihttp

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestIDHeader 用于透传或生成请求 ID。
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext 返回中间件写入的请求 ID，不存在时返回空字符串。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestLogger(r *http.Request) *log.Entry {
	return log.WithFields(log.Fields{
		"request_id": RequestIDFromContext(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	})
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey{}, id))
		c.Next()
	}
}

func accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()

		requestLogger(c.Request).WithFields(log.Fields{
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
		}).Info("request completed")
	}
}

// recoveryMiddleware 把 handler 中逃逸的 panic 转换为 502，响应体包含错误与堆栈。
// 如果响应已经开始写出（例如流式响应中途），只能中断连接。
func recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			stack := debug.Stack()
			requestLogger(c.Request).WithFields(log.Fields{
				"error": rec,
				"stack": string(stack),
			}).Error("panic recovered")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			writeText(c.Writer, http.StatusBadGateway, fmt.Sprintf("ironb2o error:\n%v\n%s", rec, stack))
			c.Abort()
		}()
		c.Next()
	}
}

func notFound(c *gin.Context) {
	writeText(c.Writer, http.StatusNotFound, "Not Found")
}
