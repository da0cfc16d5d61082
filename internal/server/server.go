package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/iceymoss/go-agora/internal/auth"
	"github.com/iceymoss/go-agora/internal/chat"
	"github.com/iceymoss/go-agora/internal/comment"
	"github.com/iceymoss/go-agora/internal/conf"
	"github.com/iceymoss/go-agora/internal/core"
	"github.com/iceymoss/go-agora/internal/engine"
	"github.com/iceymoss/go-agora/internal/keyword"
	"github.com/iceymoss/go-agora/internal/topic"
	"github.com/iceymoss/go-agora/internal/visit"
	"github.com/iceymoss/go-agora/pkg/logger"
	"github.com/iceymoss/go-agora/pkg/xerr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services HTTP 层依赖的业务组件，Visits 和 Scheduler 可以为空
type Services struct {
	Keywords  *keyword.Aggregator
	Topics    *topic.Service
	Votes     *topic.Ledger
	Chat      *chat.Stream
	Comments  *comment.Service
	Visits    *visit.Deduplicator
	Scheduler *engine.Scheduler
	Resolver  auth.Resolver
	Probes    []core.Probe
}

type Server struct {
	cfg    conf.ServerConfig
	svc    Services
	engine *gin.Engine
	log    *zap.Logger
}

func NewServer(cfg conf.ServerConfig, svc Services) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if svc.Resolver == nil {
		svc.Resolver = auth.NewHeaderResolver("", "")
	}
	s := &Server{cfg: cfg, svc: svc, log: logger.Named("server")}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(requestID(), recovery(), accessLog(), identify(s.svc.Resolver))
	if s.svc.Visits != nil {
		router.Use(visitorLog(s.svc.Visits))
	}

	router.GET("/health", s.health)

	api := router.Group("/api")
	api.GET("/health", s.health)
	// 长连接不受请求超时限制
	api.GET("/topics/:id/chat/ws", s.chatSocket)

	rest := api.Group("", timeout(s.cfg.RequestTimeout))
	{
		rest.GET("/keywords/trending", s.trendingKeywords)

		rest.GET("/topics", s.listTopics)
		rest.GET("/topics/popular-ranking", s.popularTopics)
		rest.GET("/topics/popular-all", s.allPopularTopics)
		rest.GET("/topics/latest", s.latestTopics)
		rest.GET("/topics/:id", s.getTopic)
		rest.POST("/topics/:id/view", s.recordView)
		rest.POST("/topics/:id/vote", requireUser(), s.castVote)

		rest.GET("/topics/:id/chat", s.listMessages)
		rest.POST("/topics/:id/chat", requireUser(), s.postMessage)
		rest.DELETE("/chat/:messageId", requireUser(), s.deleteMessage)
		rest.POST("/chat/:messageId/report", requireUser(), s.reportMessage)

		rest.GET("/topics/:id/comments", s.listComments)
		rest.POST("/topics/:id/comments", requireUser(), s.createComment)
		rest.PATCH("/comments/:id", requireUser(), s.updateComment)
		rest.DELETE("/comments/:id", requireUser(), s.deleteComment)
		rest.POST("/comments/:id/reaction", requireUser(), s.reactComment)
		rest.POST("/comments/:id/report", requireUser(), s.reportComment)
	}

	admin := rest.Group("/admin", requireAdmin())
	{
		admin.PUT("/chat/:messageId/status", s.moderateMessage)
		admin.PUT("/comments/:id/status", s.moderateComment)

		admin.GET("/jobs", s.listJobs)
		admin.POST("/jobs/:name/run", s.runJob)
	}

	router.NoRoute(func(c *gin.Context) {
		msg := "not found"
		// 为了安全，防止 API 404 返回了 HTML 页面
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			msg = "API not found"
		}
		c.JSON(http.StatusNotFound, errorBody{Code: xerr.ErrNotFound, Error: msg})
	})
	return router
}

// Handler 供测试和外部复用
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 启动调度器和 HTTP 服务，ctx 结束后优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		// websocket 连接随进程上下文一起结束
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	if s.svc.Scheduler != nil {
		s.svc.Scheduler.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.log.Info("http server listening", zap.String("addr", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	if s.svc.Scheduler != nil {
		s.svc.Scheduler.Stop(shutdownCtx)
	}
	if s.svc.Visits != nil {
		s.svc.Visits.Wait()
	}
	s.log.Info("http server stopped")
	return runErr
}

// health 探测存储依赖
func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := make([]string, 0)
	for _, p := range s.svc.Probes {
		if err := p.Ping(ctx); err != nil {
			s.log.Warn("health probe failed", zap.String("probe", p.Name), zap.Error(err))
			failed = append(failed, p.Name)
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
