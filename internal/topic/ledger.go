// Package topic 议题投票账本与议题读取。
//
// 每个 (topic, user) 只有一张票，可以改投，重复投同一边不产生任何变化。
// 投票在单个事务内完成，并先锁定议题行，因此同一议题的投票串行执行，
// 票数不会丢失，同一用户并发改投以最后提交的为准。
package topic

import (
	"context"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
	errs "github.com/iceymoss/go-agora/pkg/errors"
	"github.com/iceymoss/go-agora/pkg/logger"
	"github.com/iceymoss/go-agora/pkg/xerr"

	"go.uber.org/zap"
)

// Tally 投票后的票数
type Tally struct {
	VoteCountLeft  int64 `json:"voteCountLeft"`
	VoteCountRight int64 `json:"voteCountRight"`
}

type Ledger struct {
	store Store
	tx    TxManager
	now   func() time.Time
	log   *zap.Logger
}

func NewLedger(store Store, tx TxManager) *Ledger {
	return &Ledger{
		store: store,
		tx:    tx,
		now:   time.Now,
		log:   logger.Named("topic.ledger"),
	}
}

// CastVote 投票或改投，返回提交后的票数。任何错误都会回滚整个事务。
func (l *Ledger) CastVote(ctx context.Context, topicID, userID uint64, side objects.Side) (Tally, error) {
	if userID == 0 {
		return Tally{}, errs.Unauthenticated("login required to vote")
	}
	if !side.Valid() {
		return Tally{}, errs.Validation("side", "side must be LEFT or RIGHT")
	}

	var tally Tally
	err := l.tx.Execute(ctx, nil, func(ctx context.Context) error {
		t, err := l.store.LockTopic(ctx, topicID)
		if err != nil {
			return errs.Store(err)
		}
		if t == nil {
			return errs.NotFound("topic not found")
		}
		now := l.now()
		if !VotingOpen(t, now) {
			return errs.Conflict(xerr.ErrVotingClosed, "voting is closed for this topic")
		}

		existing, err := l.store.FindVote(ctx, topicID, userID)
		if err != nil {
			return errs.Store(err)
		}

		var left, right int64
		switch {
		case existing == nil:
			err = l.store.InsertVote(ctx, &objects.TopicVote{
				TopicID:   topicID,
				UserID:    userID,
				Side:      side,
				CreatedAt: now,
				UpdatedAt: now,
			})
			left, right = delta(side, 1)
		case existing.Side == side:
			tally = Tally{VoteCountLeft: t.VoteCountLeft, VoteCountRight: t.VoteCountRight}
			return nil
		default:
			err = l.store.UpdateVoteSide(ctx, existing.ID, side, now)
			ol, or := delta(existing.Side, -1)
			nl, nr := delta(side, 1)
			left, right = ol+nl, or+nr
		}
		if err != nil {
			return errs.Store(err)
		}
		if err := l.store.AdjustTally(ctx, topicID, left, right); err != nil {
			return errs.Store(err)
		}
		// 行锁保证锁定时读到的票数加上本次增量就是提交后的票数
		tally = Tally{
			VoteCountLeft:  t.VoteCountLeft + left,
			VoteCountRight: t.VoteCountRight + right,
		}
		return nil
	})
	if err != nil {
		if xerr.Retryable(errs.CodeOf(err)) {
			l.log.Warn("cast vote failed", zap.Uint64("topic_id", topicID), zap.Uint64("user_id", userID), zap.Error(err))
		}
		return Tally{}, errs.Store(err)
	}
	return tally, nil
}

// VotingOpen 状态为 OPEN 且 now 落在 [vote_start_at, vote_end_at] 内，空边界视为不限
func VotingOpen(t *objects.Topic, now time.Time) bool {
	if t.Status != objects.TopicOpen {
		return false
	}
	if t.VoteStartAt != nil && now.Before(*t.VoteStartAt) {
		return false
	}
	if t.VoteEndAt != nil && now.After(*t.VoteEndAt) {
		return false
	}
	return true
}

func delta(side objects.Side, n int64) (left, right int64) {
	if side == objects.SideLeft {
		return n, 0
	}
	return 0, n
}
