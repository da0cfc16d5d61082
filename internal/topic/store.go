package topic

import (
	"context"
	"database/sql"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
)

// TxManager 在一个事务中执行 operation，operation 收到的 ctx 携带该事务
type TxManager interface {
	Execute(ctx context.Context, opts *sql.TxOptions, operation func(ctx context.Context) error) error
}

// Store 议题相关存储。查询单行时不存在返回 nil, nil。
// 带 ctx 的方法在 ctx 携带事务时必须使用该事务。
type Store interface {
	// LockTopic 读取并锁定议题行 (SELECT ... FOR UPDATE)，直到事务结束
	LockTopic(ctx context.Context, topicID uint64) (*objects.Topic, error)
	GetTopic(ctx context.Context, topicID uint64) (*objects.Topic, error)
	// ListTopics 指定状态与类型的议题，按发布时间倒序
	ListTopics(ctx context.Context, status objects.TopicStatus, topicType string) ([]objects.Topic, error)
	// PopularTopics 开放中的投票议题按热度降序（同分按 id 降序），limit <= 0 时不限条数。
	// 热度 = 两侧票数之和 + ACTIVE 评论数 * objects.RankingCommentWeight + 浏览数
	PopularTopics(ctx context.Context, limit int) ([]objects.TopicRanking, error)
	// TopicArticles 议题下已发布的文章，按 display_order 升序、发布时间倒序
	TopicArticles(ctx context.Context, topicID uint64) ([]objects.TopicArticle, error)

	FindVote(ctx context.Context, topicID, userID uint64) (*objects.TopicVote, error)
	InsertVote(ctx context.Context, vote *objects.TopicVote) error
	UpdateVoteSide(ctx context.Context, voteID uint64, side objects.Side, at time.Time) error
	// AdjustTally 原子地调整冗余票数
	AdjustTally(ctx context.Context, topicID uint64, leftDelta, rightDelta int64) error

	HasViewSince(ctx context.Context, topicID uint64, identifier string, since time.Time) (bool, error)
	InsertView(ctx context.Context, view *objects.TopicViewLog) error
	// IncrementViews 返回受影响行数，0 表示议题不存在
	IncrementViews(ctx context.Context, topicID uint64) (int64, error)

	// CloseExpired 将 vote_end_at <= now 的 OPEN 议题置为 CLOSED，返回关闭数量
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}
