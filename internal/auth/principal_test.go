package auth

import (
	"net/http/httptest"
	"testing"

	errs "github.com/iceymoss/go-agora/pkg/errors"
	"github.com/iceymoss/go-agora/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderResolver(t *testing.T) {
	res := NewHeaderResolver("", "")

	t.Run("匿名", func(t *testing.T) {
		p, err := res.Resolve(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.False(t, p.Authenticated())
		assert.False(t, p.IsAdmin())
	})

	t.Run("普通用户", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-User-Id", "42")
		p, err := res.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), p.UserID)
		assert.Equal(t, RoleUser, p.Role)
	})

	t.Run("管理员", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-User-Id", "7")
		req.Header.Set("X-User-Role", "ADMIN")
		p, err := res.Resolve(req)
		require.NoError(t, err)
		assert.True(t, p.IsAdmin())
	})

	t.Run("非法身份头", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-User-Id", "abc")
		_, err := res.Resolve(req)
		require.Error(t, err)
		assert.Equal(t, xerr.ErrInvalidIdentity, errs.CodeOf(err))
	})
}
