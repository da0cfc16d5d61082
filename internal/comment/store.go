package comment

import (
	"context"
	"database/sql"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
)

type TxManager interface {
	Execute(ctx context.Context, opts *sql.TxOptions, operation func(ctx context.Context) error) error
}

// Store 评论存储，单行查询不存在时返回 nil, nil
type Store interface {
	TopicExists(ctx context.Context, topicID uint64) (bool, error)

	InsertComment(ctx context.Context, c *objects.TopicComment) error
	GetComment(ctx context.Context, commentID uint64) (*objects.TopicComment, error)
	LockComment(ctx context.Context, commentID uint64) (*objects.TopicComment, error)
	// ListComments 议题下全部评论（含隐藏、删除），按 created_at, id 升序
	ListComments(ctx context.Context, topicID uint64) ([]objects.TopicComment, error)
	UpdateCommentContent(ctx context.Context, commentID uint64, content string, at time.Time) error
	UpdateCommentStatus(ctx context.Context, commentID uint64, status objects.ContentStatus, at time.Time) error

	FindReaction(ctx context.Context, commentID, userID uint64) (*objects.CommentReaction, error)
	InsertReaction(ctx context.Context, r *objects.CommentReaction) error
	UpdateReaction(ctx context.Context, reactionID uint64, reaction objects.Reaction, at time.Time) error
	AdjustReactions(ctx context.Context, commentID uint64, likeDelta, dislikeDelta int64) error
	// UserReactions 用户在某议题下的全部反应，key 为评论 id
	UserReactions(ctx context.Context, topicID, userID uint64) (map[uint64]objects.Reaction, error)

	// InsertCommentReport (comment_id, user_id) 已存在时不插入并返回 false
	InsertCommentReport(ctx context.Context, report *objects.CommentReport) (bool, error)
	IncrementCommentReports(ctx context.Context, commentID uint64) error
}
