package chat

import (
	"context"
	"sync"

	"github.com/iceymoss/go-agora/pkg/logger"

	"go.uber.org/zap"
)

const subscriberBuffer = 64

// Broker 按议题分发聊天事件
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe 返回事件通道和取消函数，ctx 结束或调用取消函数后通道关闭
	Subscribe(ctx context.Context, topicID uint64) (<-chan Event, func(), error)
}

type subscriber struct {
	ch   chan Event
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// LocalBroker 进程内扇出，跟不上的订阅者会丢弃事件而不是阻塞发布方
type LocalBroker struct {
	mu   sync.RWMutex
	subs map[uint64]map[*subscriber]struct{}
	log  *zap.Logger
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		subs: make(map[uint64]map[*subscriber]struct{}),
		log:  logger.Named("chat.broker"),
	}
}

func (b *LocalBroker) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs[ev.TopicID] {
		select {
		case s.ch <- ev:
		default:
			b.log.Warn("drop chat event for slow subscriber",
				zap.Uint64("topic_id", ev.TopicID),
				zap.String("type", ev.Type),
			)
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, topicID uint64) (<-chan Event, func(), error) {
	s := &subscriber{ch: make(chan Event, subscriberBuffer)}

	b.mu.Lock()
	if b.subs[topicID] == nil {
		b.subs[topicID] = make(map[*subscriber]struct{})
	}
	b.subs[topicID][s] = struct{}{}
	b.mu.Unlock()
	b.log.Debug("chat subscriber joined", zap.Uint64("topic_id", topicID), zap.Int("subscribers", b.Subscribers(topicID)))

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			delete(b.subs[topicID], s)
			if len(b.subs[topicID]) == 0 {
				delete(b.subs, topicID)
			}
			b.mu.Unlock()
			s.close()
			b.log.Debug("chat subscriber left", zap.Uint64("topic_id", topicID), zap.Int("subscribers", b.Subscribers(topicID)))
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return s.ch, cancel, nil
}

// Subscribers 当前某议题的订阅数
func (b *LocalBroker) Subscribers(topicID uint64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topicID])
}
