package server

import (
	"errors"
	"net/http"
	"strconv"

	errs "github.com/iceymoss/go-agora/pkg/errors"
	"github.com/iceymoss/go-agora/pkg/logger"
	"github.com/iceymoss/go-agora/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// errorBody 统一错误响应
type errorBody struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// fail 按错误码输出响应，未分类的错误只返回通用信息
func fail(c *gin.Context, err error) {
	if cm, ok := errs.As(err); ok {
		status := cm.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logger.Warn("request failed",
				zap.String("path", c.FullPath()),
				zap.Int("code", cm.Code),
				zap.Error(err),
			)
		}
		c.AbortWithStatusJSON(status, errorBody{Code: cm.Code, Error: cm.Msg, Field: cm.Field})
		return
	}
	logger.Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{
		Code:  xerr.ErrInternalServer,
		Error: "internal server error",
	})
}

// bindJSON 请求体格式错误统一返回 400
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var field string
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			field = ve[0].Field()
		}
		fail(c, &errs.CodeMsg{Code: xerr.ErrInvalidJSON, Msg: "invalid request body", Field: field, Err: err})
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, errs.Validation(name, "invalid "+name))
		return 0, false
	}
	return id, true
}

// queryInt 缺省时返回 def
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		fail(c, errs.Validation(name, "invalid "+name))
		return 0, false
	}
	return n, true
}
