// Package auth 表示上游网关已校验的调用者身份。
// 本服务不做登录和令牌校验，只信任网关转发的身份头。
package auth

import (
	"net/http"
	"strconv"
	"strings"

	errs "github.com/iceymoss/go-agora/pkg/errors"
	"github.com/iceymoss/go-agora/pkg/xerr"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	DefaultUserHeader = "X-User-Id"
	DefaultRoleHeader = "X-User-Role"
)

// Principal 已解析的调用者，UserID 为 0 表示匿名
type Principal struct {
	UserID uint64
	Role   Role
}

// Anonymous 未登录访客
var Anonymous = Principal{}

func (p Principal) Authenticated() bool {
	return p.UserID != 0
}

func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == RoleAdmin
}

// Resolver 从请求中解析调用者
type Resolver interface {
	Resolve(r *http.Request) (Principal, error)
}

// HeaderResolver 读取网关注入的身份头
type HeaderResolver struct {
	UserHeader string
	RoleHeader string
}

func NewHeaderResolver(userHeader, roleHeader string) *HeaderResolver {
	if userHeader == "" {
		userHeader = DefaultUserHeader
	}
	if roleHeader == "" {
		roleHeader = DefaultRoleHeader
	}
	return &HeaderResolver{UserHeader: userHeader, RoleHeader: roleHeader}
}

// Resolve 没有身份头时返回匿名；身份头格式错误时返回 401
func (h *HeaderResolver) Resolve(r *http.Request) (Principal, error) {
	raw := strings.TrimSpace(r.Header.Get(h.UserHeader))
	if raw == "" {
		return Anonymous, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return Anonymous, errs.Wrap(xerr.ErrInvalidIdentity, "invalid user identity", err)
	}
	role := RoleUser
	if strings.EqualFold(strings.TrimSpace(r.Header.Get(h.RoleHeader)), string(RoleAdmin)) {
		role = RoleAdmin
	}
	return Principal{UserID: id, Role: role}, nil
}
