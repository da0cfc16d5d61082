package topic

import (
	"context"
	"fmt"
	"time"

	"github.com/iceymoss/go-agora/internal/auth"
	"github.com/iceymoss/go-agora/pkg/db/objects"
	errs "github.com/iceymoss/go-agora/pkg/errors"
	"github.com/iceymoss/go-agora/pkg/favicon"
)

const DefaultViewCooldown = 24 * time.Hour

// RankingLimit 热门与最新列表的默认条数
const RankingLimit = 10

// Article 议题下的文章，附带派生的 favicon_url
type Article struct {
	objects.TopicArticle
	FaviconURL *string `json:"favicon_url"`
}

// Detail 议题详情，MyVote 为 nil 表示未投票或匿名
type Detail struct {
	Topic    objects.Topic `json:"topic"`
	MyVote   *objects.Side `json:"my_vote"`
	Articles []Article     `json:"articles"`
}

type Config struct {
	ViewCooldown time.Duration
	Favicons     favicon.Map
}

// Service 议题列表、详情、浏览计数和到期关闭
type Service struct {
	store Store
	tx    TxManager
	cfg   Config
	now   func() time.Time
}

func NewService(store Store, tx TxManager, cfg Config) *Service {
	if cfg.ViewCooldown <= 0 {
		cfg.ViewCooldown = DefaultViewCooldown
	}
	return &Service{store: store, tx: tx, cfg: cfg, now: time.Now}
}

// ListOpen 开放中的投票议题
func (s *Service) ListOpen(ctx context.Context) ([]objects.Topic, error) {
	list, err := s.store.ListTopics(ctx, objects.TopicOpen, objects.TopicTypeVoting)
	if err != nil {
		return nil, errs.Store(err)
	}
	if list == nil {
		list = []objects.Topic{}
	}
	return list, nil
}

// Popular 开放议题按热度排行，limit <= 0 时返回全部
func (s *Service) Popular(ctx context.Context, limit int) ([]objects.TopicRanking, error) {
	list, err := s.store.PopularTopics(ctx, limit)
	if err != nil {
		return nil, errs.Store(err)
	}
	if list == nil {
		list = []objects.TopicRanking{}
	}
	return list, nil
}

// Latest 最新发布的 limit 个开放议题
func (s *Service) Latest(ctx context.Context, limit int) ([]objects.Topic, error) {
	if limit <= 0 {
		limit = RankingLimit
	}
	list, err := s.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Get 议题详情。只有 OPEN 议题可见。
func (s *Service) Get(ctx context.Context, topicID uint64, viewer auth.Principal) (*Detail, error) {
	t, err := s.store.GetTopic(ctx, topicID)
	if err != nil {
		return nil, errs.Store(err)
	}
	if t == nil || t.Status != objects.TopicOpen {
		return nil, errs.NotFound("topic not found")
	}

	d := &Detail{Topic: *t, Articles: []Article{}}
	if viewer.Authenticated() {
		v, err := s.store.FindVote(ctx, topicID, viewer.UserID)
		if err != nil {
			return nil, errs.Store(err)
		}
		if v != nil {
			side := v.Side
			d.MyVote = &side
		}
	}

	rows, err := s.store.TopicArticles(ctx, topicID)
	if err != nil {
		return nil, errs.Store(err)
	}
	for _, a := range rows {
		d.Articles = append(d.Articles, Article{
			TopicArticle: a,
			FaviconURL:   s.cfg.Favicons.Lookup(a.SourceDomain),
		})
	}
	return d, nil
}

// ViewerIdentifier 登录用户按用户 id，匿名按 IP
func ViewerIdentifier(viewer auth.Principal, ip string) string {
	if viewer.Authenticated() {
		return fmt.Sprintf("user_%d", viewer.UserID)
	}
	return "ip_" + ip
}

// RecordView 冷却期内同一标识只计一次浏览，返回本次是否计数
func (s *Service) RecordView(ctx context.Context, topicID uint64, identifier string) (bool, error) {
	if identifier == "" {
		return false, errs.Validation("identifier", "viewer identifier required")
	}
	counted := false
	err := s.tx.Execute(ctx, nil, func(ctx context.Context) error {
		now := s.now()
		seen, err := s.store.HasViewSince(ctx, topicID, identifier, now.Add(-s.cfg.ViewCooldown))
		if err != nil {
			return errs.Store(err)
		}
		if seen {
			return nil
		}
		if err := s.store.InsertView(ctx, &objects.TopicViewLog{
			TopicID:        topicID,
			UserIdentifier: identifier,
			CreatedAt:      now,
		}); err != nil {
			return errs.Store(err)
		}
		n, err := s.store.IncrementViews(ctx, topicID)
		if err != nil {
			return errs.Store(err)
		}
		if n == 0 {
			return errs.NotFound("topic not found")
		}
		counted = true
		return nil
	})
	if err != nil {
		return false, errs.Store(err)
	}
	return counted, nil
}

// CloseExpired 关闭投票已截止的议题
func (s *Service) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.CloseExpired(ctx, now)
	if err != nil {
		return 0, errs.Store(err)
	}
	return n, nil
}
