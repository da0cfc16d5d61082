// Package chat 议题实时聊天：发送、分页读取、举报、审核以及按议题订阅新消息。
package chat

import (
	"context"
	"time"

	"github.com/iceymoss/go-agora/internal/auth"
	"github.com/iceymoss/go-agora/internal/moderation"
	"github.com/iceymoss/go-agora/pkg/db/objects"
	errs "github.com/iceymoss/go-agora/pkg/errors"
	"github.com/iceymoss/go-agora/pkg/logger"
	"github.com/iceymoss/go-agora/pkg/sensitive"

	"go.uber.org/zap"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type Config struct {
	MaxContentLength int
	ReportThreshold  int
	PageSize         int
}

type Stream struct {
	store  Store
	tx     TxManager
	broker Broker
	words  *sensitive.Word
	cfg    Config
	now    func() time.Time
	log    *zap.Logger
}

// NewStream words 可以为 nil，表示不做敏感词屏蔽
func NewStream(store Store, tx TxManager, broker Broker, words *sensitive.Word, cfg Config) *Stream {
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = moderation.DefaultMaxContentLength
	}
	if cfg.ReportThreshold <= 0 {
		cfg.ReportThreshold = moderation.DefaultReportThreshold
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if broker == nil {
		broker = NewLocalBroker()
	}
	return &Stream{
		store:  store,
		tx:     tx,
		broker: broker,
		words:  words,
		cfg:    cfg,
		now:    time.Now,
		log:    logger.Named("chat"),
	}
}

// PostMessage 发送消息并通知订阅者
func (s *Stream) PostMessage(ctx context.Context, topicID uint64, author auth.Principal, content string) (Message, error) {
	if !author.Authenticated() {
		return Message{}, errs.Unauthenticated("login required to chat")
	}
	content, err := moderation.CleanContent(content, s.cfg.MaxContentLength, s.words)
	if err != nil {
		return Message{}, err
	}
	ok, err := s.store.TopicExists(ctx, topicID)
	if err != nil {
		return Message{}, errs.Store(err)
	}
	if !ok {
		return Message{}, errs.NotFound("topic not found")
	}

	now := s.now()
	msg := &objects.ChatMessage{
		TopicID:   topicID,
		UserID:    author.UserID,
		Content:   content,
		Status:    objects.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return Message{}, errs.Store(err)
	}

	s.publish(ctx, EventMessageCreated, *msg)
	return View(*msg, author), nil
}

// ListMessages 按时间正序返回，被隐藏的消息对无权查看者只保留占位
func (s *Stream) ListMessages(ctx context.Context, viewer auth.Principal, topicID uint64, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = s.cfg.PageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		return nil, errs.Validation("offset", "offset must not be negative")
	}
	ok, err := s.store.TopicExists(ctx, topicID)
	if err != nil {
		return nil, errs.Store(err)
	}
	if !ok {
		return nil, errs.NotFound("topic not found")
	}
	rows, err := s.store.ListMessages(ctx, topicID, limit, offset)
	if err != nil {
		return nil, errs.Store(err)
	}
	out := make([]Message, 0, len(rows))
	for _, m := range rows {
		out = append(out, View(m, viewer))
	}
	return out, nil
}

// ReportMessage 举报消息。同一用户重复举报被接受但不产生新记录；累计达到阈值自动隐藏。
func (s *Stream) ReportMessage(ctx context.Context, messageID uint64, reporter auth.Principal, rawReason string) (moderation.ReportOutcome, error) {
	if !reporter.Authenticated() {
		return moderation.ReportOutcome{}, errs.Unauthenticated("login required to report")
	}
	reason, err := moderation.ParseReason(rawReason)
	if err != nil {
		return moderation.ReportOutcome{}, err
	}

	var (
		outcome moderation.ReportOutcome
		hidden  *objects.ChatMessage
	)
	err = s.tx.Execute(ctx, nil, func(ctx context.Context) error {
		msg, err := s.store.LockMessage(ctx, messageID)
		if err != nil {
			return errs.Store(err)
		}
		if msg == nil {
			return errs.NotFound("message not found")
		}
		now := s.now()
		inserted, err := s.store.InsertChatReport(ctx, &objects.ChatReport{
			ChatID:    messageID,
			UserID:    reporter.UserID,
			Reason:    reason,
			CreatedAt: now,
		})
		if err != nil {
			return errs.Store(err)
		}
		if !inserted {
			outcome = moderation.ReportOutcome{
				Duplicate:   true,
				ReportCount: msg.ReportCount,
				Hidden:      moderation.Hidden(msg.Status),
			}
			return nil
		}
		if err := s.store.IncrementMessageReports(ctx, messageID); err != nil {
			return errs.Store(err)
		}
		msg.ReportCount++
		if msg.ReportCount >= s.cfg.ReportThreshold && msg.Status == objects.StatusActive {
			if err := s.store.UpdateMessageStatus(ctx, messageID, objects.StatusHidden, now); err != nil {
				return errs.Store(err)
			}
			msg.Status = objects.StatusHidden
			msg.UpdatedAt = now
			hidden = msg
		}
		outcome = moderation.ReportOutcome{
			ReportCount: msg.ReportCount,
			Hidden:      moderation.Hidden(msg.Status),
		}
		return nil
	})
	if err != nil {
		return moderation.ReportOutcome{}, errs.Store(err)
	}
	if hidden != nil {
		s.log.Info("message hidden by reports", zap.Uint64("message_id", messageID), zap.Int("report_count", hidden.ReportCount))
		s.publish(ctx, EventMessageStatusChanged, *hidden)
	}
	return outcome, nil
}

// DeleteOwn 作者删除自己的消息，重复删除是幂等的
func (s *Stream) DeleteOwn(ctx context.Context, messageID uint64, user auth.Principal) error {
	if !user.Authenticated() {
		return errs.Unauthenticated("login required")
	}
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return errs.Store(err)
	}
	if msg == nil {
		return errs.NotFound("message not found")
	}
	if msg.UserID != user.UserID {
		return errs.Forbidden("only the author can delete this message")
	}
	switch msg.Status {
	case objects.StatusDeletedByUser:
		return nil
	case objects.StatusDeletedByAdmin:
		return errs.NotFound("message not found")
	}
	return s.setStatus(ctx, *msg, objects.StatusDeletedByUser)
}

// Moderate 管理员设置消息状态：ACTIVE 恢复、HIDDEN、DELETED_BY_ADMIN
func (s *Stream) Moderate(ctx context.Context, admin auth.Principal, messageID uint64, rawStatus string) (Message, error) {
	if !admin.Authenticated() {
		return Message{}, errs.Unauthenticated("login required")
	}
	if !admin.IsAdmin() {
		return Message{}, errs.Forbidden("admin only")
	}
	status, err := moderation.ParseAdminStatus(rawStatus)
	if err != nil {
		return Message{}, err
	}
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return Message{}, errs.Store(err)
	}
	if msg == nil {
		return Message{}, errs.NotFound("message not found")
	}
	if msg.Status != status {
		if err := s.setStatus(ctx, *msg, status); err != nil {
			return Message{}, err
		}
		msg.Status = status
		msg.UpdatedAt = s.now()
	}
	s.log.Info("message moderated", zap.Uint64("message_id", messageID), zap.Uint64("admin_id", admin.UserID), zap.String("status", string(status)))
	return View(*msg, admin), nil
}

// Subscribe 订阅某议题的聊天事件
func (s *Stream) Subscribe(ctx context.Context, topicID uint64) (<-chan Event, func(), error) {
	ok, err := s.store.TopicExists(ctx, topicID)
	if err != nil {
		return nil, nil, errs.Store(err)
	}
	if !ok {
		return nil, nil, errs.NotFound("topic not found")
	}
	return s.broker.Subscribe(ctx, topicID)
}

func (s *Stream) setStatus(ctx context.Context, msg objects.ChatMessage, status objects.ContentStatus) error {
	now := s.now()
	if err := s.store.UpdateMessageStatus(ctx, msg.ID, status, now); err != nil {
		return errs.Store(err)
	}
	msg.Status = status
	msg.UpdatedAt = now
	s.publish(ctx, EventMessageStatusChanged, msg)
	return nil
}

// publish 推送失败不影响已提交的写入，只记录日志。
// 事件按匿名视角生成，状态变更事件不携带被隐藏的正文。
func (s *Stream) publish(ctx context.Context, typ string, msg objects.ChatMessage) {
	ev := Event{Type: typ, TopicID: msg.TopicID, Message: View(msg, auth.Anonymous)}
	if err := s.broker.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("publish chat event failed",
			zap.String("type", typ),
			zap.Uint64("message_id", msg.ID),
			zap.Error(err),
		)
	}
}
