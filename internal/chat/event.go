package chat

import (
	"time"

	"github.com/iceymoss/go-agora/internal/auth"
	"github.com/iceymoss/go-agora/internal/moderation"
	"github.com/iceymoss/go-agora/pkg/db/objects"
)

const (
	EventMessageCreated       = "message.created"
	EventMessageStatusChanged = "message.status_changed"
)

// Message 对外返回的消息，被隐藏或删除的消息对无权查看者只保留占位信息
type Message struct {
	ID        uint64                `json:"id"`
	TopicID   uint64                `json:"topic_id"`
	UserID    uint64                `json:"user_id,omitempty"`
	Content   string                `json:"content"`
	Status    objects.ContentStatus `json:"status"`
	Redacted  bool                  `json:"redacted"`
	IsMine    bool                  `json:"is_mine"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Event 推送给订阅者的事件
type Event struct {
	Type    string  `json:"type"`
	TopicID uint64  `json:"topic_id"`
	Message Message `json:"message"`
}

// View 按查看者权限生成消息视图
func View(m objects.ChatMessage, viewer auth.Principal) Message {
	out := Message{
		ID:        m.ID,
		TopicID:   m.TopicID,
		Status:    m.Status,
		IsMine:    viewer.Authenticated() && viewer.UserID == m.UserID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if moderation.CanReadContent(m.Status, m.UserID, viewer) {
		out.UserID = m.UserID
		out.Content = m.Content
		return out
	}
	out.Redacted = true
	return out
}
