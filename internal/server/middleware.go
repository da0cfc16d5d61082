package server

import (
	"context"
	"time"

	"github.com/iceymoss/go-agora/internal/auth"
	"github.com/iceymoss/go-agora/internal/visit"
	errs "github.com/iceymoss/go-agora/pkg/errors"
	"github.com/iceymoss/go-agora/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerRequestID = "X-Request-Id"
	ctxPrincipal    = "agora.principal"
	ctxRequestID    = "agora.request_id"
)

// requestID 透传或生成请求 id
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// accessLog 使用 zap 输出访问日志
func accessLog() gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if p, ok := c.Get(ctxPrincipal); ok && p.(auth.Principal).Authenticated() {
			fields = append(fields, zap.Uint64("user_id", p.(auth.Principal).UserID))
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// recovery panic 时返回 500
func recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		logger.Error("panic recovered", zap.Any("panic", rec), zap.String("path", c.Request.URL.Path))
		fail(c, errs.New(500, "internal server error"))
	})
}

// timeout 为请求上下文设置上限，存储调用超时后返回 503
func timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// identify 解析网关转发的身份，格式错误的身份头直接拒绝
func identify(r auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := r.Resolve(c.Request)
		if err != nil {
			fail(c, err)
			return
		}
		c.Set(ctxPrincipal, p)
		c.Next()
	}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principal(c).Authenticated() {
			fail(c, errs.Unauthenticated("login required"))
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principal(c)
		if !p.Authenticated() {
			fail(c, errs.Unauthenticated("login required"))
			return
		}
		if !p.IsAdmin() {
			fail(c, errs.Forbidden("admin only"))
			return
		}
		c.Next()
	}
}

// visitorLog 异步记录访客，不等待结果
func visitorLog(d *visit.Deduplicator) gin.HandlerFunc {
	return func(c *gin.Context) {
		d.Dispatch(visit.FromRequest(c.Request))
		c.Next()
	}
}

func principal(c *gin.Context) auth.Principal {
	if p, ok := c.Get(ctxPrincipal); ok {
		return p.(auth.Principal)
	}
	return auth.Anonymous
}
