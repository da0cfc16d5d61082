package repo

import (
	"context"
	"fmt"

	"github.com/iceymoss/go-agora/pkg/db/objects"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var articleColumns = []string{
	"id", "title", "source", "source_domain", "url", "thumbnail_url", "published_at", "view_count",
}

// KeywordRepo 热门关键词的只读查询，用 sqlx 直接扫描到结构体。
// 关键词按 LIKE '%kw%' 匹配，不转义 % 和 _。
type KeywordRepo struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewKeywordRepo postgres 使用 $n 占位符，其余驱动使用 ?
func NewKeywordRepo(db *sqlx.DB) *KeywordRepo {
	sb := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	switch db.DriverName() {
	case "postgres", "pgx":
		sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &KeywordRepo{db: db, sb: sb}
}

func (r *KeywordRepo) LatestKeywords(ctx context.Context, limit int) ([]objects.TrendingKeyword, error) {
	query, args, err := r.sb.Select("id", "keyword", "created_at").
		From(objects.TrendingKeyword{}.TableName()).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build keyword query: %w", err)
	}
	var out []objects.TrendingKeyword
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select keywords: %w", err)
	}
	return out, nil
}

func titleLike(keyword string) sq.Like {
	return sq.Like{"title": "%" + keyword + "%"}
}

func (r *KeywordRepo) CountMatches(ctx context.Context, keyword string) (int64, int64, error) {
	query, args, err := r.sb.Select("COUNT(*) AS article_count", "COUNT(DISTINCT source) AS source_count").
		From(objects.HomeArticle{}.TableName()).
		Where(titleLike(keyword)).
		ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("build count query: %w", err)
	}
	var row struct {
		ArticleCount int64 `db:"article_count"`
		SourceCount  int64 `db:"source_count"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return 0, 0, fmt.Errorf("count articles for %q: %w", keyword, err)
	}
	return row.ArticleCount, row.SourceCount, nil
}

func (r *KeywordRepo) LatestMatches(ctx context.Context, keyword string, limit int) ([]objects.HomeArticle, error) {
	query, args, err := r.sb.Select(articleColumns...).
		From(objects.HomeArticle{}.TableName()).
		Where(titleLike(keyword)).
		OrderBy("published_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sample query: %w", err)
	}
	var out []objects.HomeArticle
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select articles for %q: %w", keyword, err)
	}
	return out, nil
}
