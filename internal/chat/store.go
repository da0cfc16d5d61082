package chat

import (
	"context"
	"database/sql"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
)

type TxManager interface {
	Execute(ctx context.Context, opts *sql.TxOptions, operation func(ctx context.Context) error) error
}

// Store 聊天消息存储，单行查询不存在时返回 nil, nil
type Store interface {
	TopicExists(ctx context.Context, topicID uint64) (bool, error)

	InsertMessage(ctx context.Context, msg *objects.ChatMessage) error
	GetMessage(ctx context.Context, messageID uint64) (*objects.ChatMessage, error)
	// LockMessage 读取并锁定消息行直到事务结束
	LockMessage(ctx context.Context, messageID uint64) (*objects.ChatMessage, error)
	// ListMessages 按 created_at, id 升序分页，包含所有状态
	ListMessages(ctx context.Context, topicID uint64, limit, offset int) ([]objects.ChatMessage, error)
	UpdateMessageStatus(ctx context.Context, messageID uint64, status objects.ContentStatus, at time.Time) error

	// InsertChatReport 插入举报记录，(chat_id, user_id) 已存在时不插入并返回 false
	InsertChatReport(ctx context.Context, report *objects.ChatReport) (bool, error)
	IncrementMessageReports(ctx context.Context, messageID uint64) error
}
