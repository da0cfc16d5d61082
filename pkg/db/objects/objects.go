package objects

// All 返回需要迁移的全部表模型
func All() []any {
	return []any{
		&VisitorLog{},
		&TrendingKeyword{},
		&HomeArticle{},
		&Topic{},
		&TopicVote{},
		&TopicViewLog{},
		&TopicArticle{},
		&ChatMessage{},
		&ChatReport{},
		&TopicComment{},
		&CommentReport{},
		&CommentReaction{},
		&SysJob{},
		&SysJobLog{},
	}
}
