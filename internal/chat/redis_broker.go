package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/iceymoss/go-agora/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const DefaultChannelPrefix = "agora:chat:topic:"

// RedisBroker 通过 redis pub/sub 在多个实例之间分发事件
type RedisBroker struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedisBroker(rdb *redis.Client, prefix string) *RedisBroker {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisBroker{rdb: rdb, prefix: prefix, log: logger.Named("chat.redis")}
}

func (b *RedisBroker) channel(topicID uint64) string {
	return fmt.Sprintf("%s%d", b.prefix, topicID)
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal chat event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel(ev.TopicID), payload).Err(); err != nil {
		return fmt.Errorf("publish chat event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topicID uint64) (<-chan Event, func(), error) {
	ps := b.rdb.Subscribe(ctx, b.channel(topicID))
	// 等待订阅确认，确保返回后不会漏掉随后发布的事件
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", b.channel(topicID), err)
	}

	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn("decode chat event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				default:
					b.log.Warn("drop chat event for slow subscriber", zap.Uint64("topic_id", topicID))
				}
			}
		}
	}()
	return out, cancel, nil
}
