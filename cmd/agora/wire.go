package main

import (
	"context"
	"fmt"
	"time"

	"github.com/iceymoss/go-agora/internal/auth"
	"github.com/iceymoss/go-agora/internal/chat"
	"github.com/iceymoss/go-agora/internal/comment"
	"github.com/iceymoss/go-agora/internal/conf"
	"github.com/iceymoss/go-agora/internal/core"
	"github.com/iceymoss/go-agora/internal/engine"
	"github.com/iceymoss/go-agora/internal/keyword"
	"github.com/iceymoss/go-agora/internal/repo"
	"github.com/iceymoss/go-agora/internal/repo/memstore"
	"github.com/iceymoss/go-agora/internal/server"
	"github.com/iceymoss/go-agora/internal/topic"
	"github.com/iceymoss/go-agora/internal/visit"
	"github.com/iceymoss/go-agora/pkg/db"
	"github.com/iceymoss/go-agora/pkg/favicon"
	"github.com/iceymoss/go-agora/pkg/logger"
	"github.com/iceymoss/go-agora/pkg/sensitive"
	"github.com/iceymoss/go-agora/pkg/transaction"
	"github.com/iceymoss/go-agora/pkg/utils"

	"github.com/jmoiron/sqlx"
	// keyword 查询在 postgres 下走 lib/pq
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// stores 各业务组件使用的存储实现
type stores struct {
	keywords keyword.Store
	visits   visit.Store
	topics   topic.Store
	chats    chat.Store
	comments comment.Store
	jobLogs  engine.JobLogStore
	jobDefs  engine.JobDefinitionStore
	tx       interface {
		topic.TxManager
		chat.TxManager
		comment.TxManager
	}
}

type app struct {
	cfg       *conf.Config
	gorm      *gorm.DB
	jobDefs   engine.JobDefinitionStore
	services  server.Services
	scheduler *engine.Scheduler
	closers   []func() error
}

func loadConfig() (*conf.Config, error) {
	cfg, err := conf.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgFile, err)
	}
	logger.SetLevel(cfg.Log.Level)
	utils.SetServerLocation(utils.LoadLocation(cfg.Timezone.Name, cfg.Timezone.FallbackOffset))
	return cfg, nil
}

// openStores 按 database.driver 选择内存存储或关系型数据库
func (a *app) openStores(ctx context.Context) (*stores, []core.Probe, error) {
	if a.cfg.Database.Driver == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
		mem := memstore.New()
		return &stores{
			keywords: mem, visits: mem, topics: mem, chats: mem, comments: mem, jobLogs: mem, jobDefs: mem, tx: mem,
		}, []core.Probe{{Name: "memory", Ping: mem.Ping}}, nil
	}

	gdb, err := db.Open(a.cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	a.gorm = gdb
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, sqlDB.Close)

	var kdb *sqlx.DB
	switch a.cfg.Database.Driver {
	case "postgres":
		kdb, err = sqlx.ConnectContext(ctx, "postgres", a.cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connect keyword db: %w", err)
		}
		a.closers = append(a.closers, kdb.Close)
	default:
		kdb = sqlx.NewDb(sqlDB, "mysql")
	}

	tm := transaction.NewManager(gdb)
	probes := []core.Probe{{Name: a.cfg.Database.Driver, Ping: func(ctx context.Context) error { return db.Ping(ctx, gdb) }}}
	jobs := repo.NewJobRepo(tm)
	return &stores{
		keywords: repo.NewKeywordRepo(kdb),
		visits:   repo.NewVisitRepo(tm),
		topics:   repo.NewTopicRepo(tm),
		chats:    repo.NewChatRepo(tm),
		comments: repo.NewCommentRepo(tm),
		jobLogs:  jobs,
		jobDefs:  jobs,
		tx:       tm,
	}, probes, nil
}

// openBroker redis 启用时使用 pub/sub，支持多实例
func (a *app) openBroker(ctx context.Context) (chat.Broker, *core.Probe, error) {
	if !a.cfg.Redis.Enable {
		return chat.NewLocalBroker(), nil, nil
	}
	rdb, err := db.NewRedis(ctx, a.cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, rdb.Close)
	probe := &core.Probe{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }}
	return chat.NewRedisBroker(rdb, a.cfg.Chat.ChannelPrefix), probe, nil
}

func buildApp(ctx context.Context, cfg *conf.Config) (*app, error) {
	a := &app{cfg: cfg}
	st, probes, err := a.openStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	broker, redisProbe, err := a.openBroker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if redisProbe != nil {
		probes = append(probes, *redisProbe)
	}

	words, err := sensitive.NewWord(cfg.Content.DictFile, cfg.Content.Words...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load sensitive words: %w", err)
	}
	favicons := favicon.Default().WithOverrides(cfg.Keywords.Favicons)
	logger.Info("favicon table loaded",
		zap.Int("version", favicons.Version()),
		zap.Int("domains", favicons.Len()),
		zap.Int("overrides", len(cfg.Keywords.Favicons)),
	)

	topics := topic.NewService(st.topics, st.tx, topic.Config{
		ViewCooldown: cfg.Topics.ViewCooldown,
		Favicons:     favicons,
	})

	deps := &core.Deps{Topics: topics, Probes: probes, Now: time.Now}
	a.jobDefs = st.jobDefs
	a.scheduler = engine.NewScheduler(st.jobLogs, deps, engine.WithLocation(utils.ServerLocation))

	a.services = server.Services{
		Keywords: keyword.NewAggregator(st.keywords, keyword.Config{
			KeywordLimit: cfg.Keywords.Limit,
			SampleSize:   cfg.Keywords.SampleSize,
			Favicons:     favicons,
		}),
		Topics: topics,
		Votes:  topic.NewLedger(st.topics, st.tx),
		Chat: chat.NewStream(st.chats, st.tx, broker, words, chat.Config{
			MaxContentLength: cfg.Chat.MaxContentLength,
			ReportThreshold:  cfg.Chat.ReportThreshold,
			PageSize:         cfg.Chat.PageSize,
		}),
		Comments: comment.NewService(st.comments, st.tx, words, comment.Config{
			MaxContentLength: cfg.Comments.MaxContentLength,
			ReportThreshold:  cfg.Comments.ReportThreshold,
		}),
		Scheduler: a.scheduler,
		Resolver:  auth.NewHeaderResolver(cfg.Auth.UserHeader, cfg.Auth.RoleHeader),
		Probes:    probes,
	}
	if cfg.Visitor.Enable {
		a.services.Visits = visit.NewDeduplicator(st.visits, visit.Config{
			IgnorePrefixes: cfg.Visitor.IgnorePrefixes,
			Timeout:        cfg.Visitor.Timeout,
			Location:       utils.ServerLocation,
		})
	}
	return a, nil
}

// Close 按打开的逆序关闭连接
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close resource failed", zap.Error(err))
		}
	}
	a.closers = nil
}
