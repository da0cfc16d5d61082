package repo

import (
	"context"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
	"github.com/iceymoss/go-agora/pkg/transaction"
)

type VisitRepo struct{ base }

func NewVisitRepo(tm *transaction.Manager) *VisitRepo {
	return &VisitRepo{base{tm}}
}

func (r *VisitRepo) HasVisitBetween(ctx context.Context, identifier string, from, to time.Time) (bool, error) {
	var row objects.VisitorLog
	return findOne(r.conn(ctx).Select("id").
		Where("user_identifier = ? AND created_at >= ? AND created_at < ?", identifier, from, to), &row)
}

func (r *VisitRepo) InsertVisit(ctx context.Context, log *objects.VisitorLog) error {
	return r.conn(ctx).Create(log).Error
}
