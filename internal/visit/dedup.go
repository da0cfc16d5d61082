// Package visit 记录每日独立访客。
//
// 去重采用先查后写：同一标识在同一自然日（服务器时区）只写一行。
// 两个并发的首次请求可能都通过检查而各写一行，这是可接受的近似统计，
// 需要严格唯一时可在 (user_identifier, 日期) 上加唯一约束。
package visit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
	"github.com/iceymoss/go-agora/pkg/logger"
	"github.com/iceymoss/go-agora/pkg/utils"

	"go.uber.org/zap"
)

const (
	MaxIdentifierLen = 255
	MaxUserAgentLen  = 512
	MaxPathLen       = 255
)

// DefaultIgnorePrefixes 静态资源、文档、健康检查不计入访客
var DefaultIgnorePrefixes = []string{
	"/public",
	"/api-docs",
	"/favicon.ico",
	"/api/health",
	"/health",
}

// Outcome 一次记录的结局
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeDuplicate
	OutcomeRecorded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRecorded:
		return "recorded"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result 记录结果。失败只会体现在 Result 里并被记录日志，调用方可以直接丢弃。
type Result struct {
	Outcome Outcome
	Err     error
}

// Visit 一次待记录的访问
type Visit struct {
	Identifier string
	UserAgent  string
	Path       string
}

// Store 访客日志存储
type Store interface {
	// HasVisitBetween 是否存在 identifier 在 [from, to) 内的记录
	HasVisitBetween(ctx context.Context, identifier string, from, to time.Time) (bool, error)
	InsertVisit(ctx context.Context, log *objects.VisitorLog) error
}

type Config struct {
	IgnorePrefixes []string
	// Timeout 异步记录的超时时间，与宿主请求无关
	Timeout  time.Duration
	Location *time.Location
}

type Deduplicator struct {
	store Store
	cfg   Config
	now   func() time.Time
	log   *zap.Logger
	wg    sync.WaitGroup
}

func NewDeduplicator(store Store, cfg Config) *Deduplicator {
	if cfg.IgnorePrefixes == nil {
		cfg.IgnorePrefixes = DefaultIgnorePrefixes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = utils.ServerLocation
	}
	return &Deduplicator{
		store: store,
		cfg:   cfg,
		now:   time.Now,
		log:   logger.Named("visit"),
	}
}

// Ignored 路径是否命中忽略前缀
func (d *Deduplicator) Ignored(path string) bool {
	for _, prefix := range d.cfg.IgnorePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RecordVisit 同步执行一次去重写入。所有错误都被吞掉并记录日志。
func (d *Deduplicator) RecordVisit(ctx context.Context, v Visit) Result {
	if d.Ignored(v.Path) {
		return Result{Outcome: OutcomeIgnored}
	}
	v = Normalize(v)
	if v.Identifier == "" {
		return Result{Outcome: OutcomeIgnored}
	}

	now := d.now()
	from, to := utils.DayBounds(now, d.cfg.Location)

	seen, err := d.store.HasVisitBetween(ctx, v.Identifier, from, to)
	if err != nil {
		return d.fail("check visitor", v, err)
	}
	if seen {
		return Result{Outcome: OutcomeDuplicate}
	}

	entry := &objects.VisitorLog{
		UserIdentifier: v.Identifier,
		UserAgent:      v.UserAgent,
		Path:           v.Path,
		CreatedAt:      now,
	}
	if err := d.store.InsertVisit(ctx, entry); err != nil {
		return d.fail("insert visitor", v, err)
	}
	return Result{Outcome: OutcomeRecorded}
}

// Dispatch 异步记录，不阻塞也不影响宿主请求
func (d *Deduplicator) Dispatch(v Visit) {
	if d.Ignored(v.Path) {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("visitor logging panic", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		defer cancel()
		_ = d.RecordVisit(ctx, v)
	}()
}

// Wait 等待已派发的记录完成，用于优雅退出
func (d *Deduplicator) Wait() {
	d.wg.Wait()
}

func (d *Deduplicator) fail(step string, v Visit, err error) Result {
	d.log.Warn("visitor logging failed",
		zap.String("step", step),
		zap.String("identifier", v.Identifier),
		zap.String("path", v.Path),
		zap.Error(err),
	)
	return Result{Outcome: OutcomeFailed, Err: err}
}

// Normalize 按列宽截断（按字符而非字节）
func Normalize(v Visit) Visit {
	return Visit{
		Identifier: truncate(strings.TrimSpace(v.Identifier), MaxIdentifierLen),
		UserAgent:  truncate(v.UserAgent, MaxUserAgentLen),
		Path:       truncate(v.Path, MaxPathLen),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Identifier 取 X-Forwarded-For 的第一个地址，否则取连接对端地址
func Identifier(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FromRequest 从 HTTP 请求构造 Visit
func FromRequest(r *http.Request) Visit {
	return Visit{
		Identifier: Identifier(r),
		UserAgent:  r.UserAgent(),
		Path:       r.URL.RequestURI(),
	}
}
