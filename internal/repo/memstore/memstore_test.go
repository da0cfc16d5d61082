package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iceymoss/go-agora/internal/chat"
	"github.com/iceymoss/go-agora/internal/comment"
	"github.com/iceymoss/go-agora/internal/core"
	"github.com/iceymoss/go-agora/internal/engine"
	"github.com/iceymoss/go-agora/internal/keyword"
	"github.com/iceymoss/go-agora/internal/topic"
	"github.com/iceymoss/go-agora/internal/visit"
	"github.com/iceymoss/go-agora/pkg/db/objects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ visit.Store       = (*Store)(nil)
	_ keyword.Store     = (*Store)(nil)
	_ topic.Store       = (*Store)(nil)
	_ topic.TxManager   = (*Store)(nil)
	_ chat.Store        = (*Store)(nil)
	_ chat.TxManager    = (*Store)(nil)
	_ comment.Store     = (*Store)(nil)
	_ comment.TxManager = (*Store)(nil)

	_ engine.JobLogStore        = (*Store)(nil)
	_ engine.JobDefinitionStore = (*Store)(nil)
	_ core.TopicCloser          = (*Store)(nil)
)

func TestExecuteRollsBackOnError(t *testing.T) {
	s := New()
	id := s.SeedTopic(objects.Topic{Status: objects.TopicOpen})
	boom := errors.New("boom")

	err := s.Execute(context.Background(), nil, func(ctx context.Context) error {
		require.NoError(t, s.InsertVote(ctx, &objects.TopicVote{TopicID: id, UserID: 1, Side: objects.SideLeft}))
		require.NoError(t, s.AdjustTally(ctx, id, 1, 0))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.Votes(id))

	got, err := s.GetTopic(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.VoteCountLeft)
}

func TestExecuteRollsBackOnPanic(t *testing.T) {
	s := New()
	id := s.SeedTopic(objects.Topic{Status: objects.TopicOpen})

	assert.Panics(t, func() {
		_ = s.Execute(context.Background(), nil, func(ctx context.Context) error {
			_ = s.AdjustTally(ctx, id, 0, 3)
			panic("boom")
		})
	})
	got, _ := s.GetTopic(context.Background(), id)
	assert.Equal(t, int64(0), got.VoteCountRight)

	// 事务锁已释放
	require.NoError(t, s.Execute(context.Background(), nil, func(ctx context.Context) error { return nil }))
}

func TestNestedExecuteReusesTransaction(t *testing.T) {
	s := New()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Execute(context.Background(), nil, func(ctx context.Context) error {
			return s.Execute(ctx, nil, func(ctx context.Context) error {
				return s.InsertVisit(ctx, &objects.VisitorLog{UserIdentifier: "x"})
			})
		})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested Execute deadlocked")
	}
	assert.Len(t, s.Visits(), 1)
}

func TestUniqueVotePerUser(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InsertVote(ctx, &objects.TopicVote{TopicID: 1, UserID: 1, Side: objects.SideLeft}))
	err := s.InsertVote(ctx, &objects.TopicVote{TopicID: 1, UserID: 1, Side: objects.SideRight})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestFaultInjection(t *testing.T) {
	s := New()
	boom := errors.New("down")
	s.Fail("Ping", boom)
	assert.ErrorIs(t, s.Ping(context.Background()), boom)
	s.Fail("Ping", nil)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestCanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.GetTopic(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCloseExpired(t *testing.T) {
	s := New()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Hour), now.Add(time.Hour)
	expired := s.SeedTopic(objects.Topic{Status: objects.TopicOpen, VoteEndAt: &past})
	running := s.SeedTopic(objects.Topic{Status: objects.TopicOpen, VoteEndAt: &future})
	s.SeedTopic(objects.Topic{Status: objects.TopicOpen})

	n, err := s.CloseExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _ := s.GetTopic(context.Background(), expired)
	assert.Equal(t, objects.TopicClosed, got.Status)
	got, _ = s.GetTopic(context.Background(), running)
	assert.Equal(t, objects.TopicOpen, got.Status)
}
