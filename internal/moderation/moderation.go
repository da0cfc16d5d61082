// Package moderation 聊天消息与评论共用的审核规则：状态流转、内容可见性、举报理由。
package moderation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iceymoss/go-agora/internal/auth"
	"github.com/iceymoss/go-agora/pkg/db/objects"
	errs "github.com/iceymoss/go-agora/pkg/errors"
	"github.com/iceymoss/go-agora/pkg/sensitive"
)

// DefaultReportThreshold 累计举报达到该值自动隐藏
const DefaultReportThreshold = 5

// Hidden 非 ACTIVE 状态的内容对外隐藏正文
func Hidden(status objects.ContentStatus) bool {
	return status != objects.StatusActive
}

// CanReadContent 作者本人和管理员可以看到被隐藏/删除内容的正文
func CanReadContent(status objects.ContentStatus, authorID uint64, viewer auth.Principal) bool {
	if !Hidden(status) {
		return true
	}
	if viewer.IsAdmin() {
		return true
	}
	return viewer.Authenticated() && viewer.UserID == authorID
}

// ParseReason 校验举报理由
func ParseReason(raw string) (objects.ReportReason, error) {
	reason := objects.ReportReason(strings.ToUpper(strings.TrimSpace(raw)))
	switch reason {
	case objects.ReasonSpam, objects.ReasonFlooding, objects.ReasonPrivacyDefamation, objects.ReasonEtc:
		return reason, nil
	}
	return "", errs.Validation("reason", "reason must be one of SPAM, FLOODING, PRIVACY_DEFAMATION, ETC")
}

// ParseAdminStatus 管理员可设置的目标状态，DELETED_BY_USER 只能由作者本人触发
func ParseAdminStatus(raw string) (objects.ContentStatus, error) {
	status := objects.ContentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case objects.StatusActive, objects.StatusHidden, objects.StatusDeletedByAdmin:
		return status, nil
	}
	return "", errs.Validation("status", "status must be one of ACTIVE, HIDDEN, DELETED_BY_ADMIN")
}

// ReportOutcome 举报结果，Duplicate 表示该用户已举报过，未产生新的举报记录
type ReportOutcome struct {
	Duplicate   bool `json:"duplicate"`
	ReportCount int  `json:"report_count"`
	Hidden      bool `json:"hidden"`
}

// DefaultMaxContentLength 正文最大字符数
const DefaultMaxContentLength = 1000

// CleanContent 去掉首尾空白，校验非空与长度（按字符），并屏蔽敏感词
func CleanContent(raw string, maxRunes int, words *sensitive.Word) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", errs.Validation("content", "content must not be empty")
	}
	if maxRunes <= 0 {
		maxRunes = DefaultMaxContentLength
	}
	if utf8.RuneCountInString(content) > maxRunes {
		return "", errs.Validation("content", fmt.Sprintf("content must be at most %d characters", maxRunes))
	}
	return words.Mask(content), nil
}
