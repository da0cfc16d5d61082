package errors

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/iceymoss/go-agora/pkg/xerr"
)

type CodeMsg struct {
	Code  int    // 错误码
	Msg   string // 错误消息
	Field string // 校验失败的字段，可为空
	Err   error  // 原始错误
}

// 实现 error 接口
func (e *CodeMsg) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code=%d, msg=%s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("code=%d, msg=%s", e.Code, e.Msg)
}

func (e *CodeMsg) Unwrap() error {
	return e.Err
}

// HTTPStatus 对应的 HTTP 状态码
func (e *CodeMsg) HTTPStatus() int {
	return xerr.HTTPStatus(e.Code)
}

// New 构造函数
func New(code int, msg string) error {
	return &CodeMsg{Code: code, Msg: msg}
}

// Wrap 携带原始错误
func Wrap(code int, msg string, err error) error {
	return &CodeMsg{Code: code, Msg: msg, Err: err}
}

// Validation 字段级校验错误，不可重试
func Validation(field, msg string) error {
	return &CodeMsg{Code: xerr.ErrInvalidInput, Msg: msg, Field: field}
}

func NotFound(msg string) error {
	return &CodeMsg{Code: xerr.ErrResourceNotFound, Msg: msg}
}

func Conflict(code int, msg string) error {
	return &CodeMsg{Code: code, Msg: msg}
}

func Unauthenticated(msg string) error {
	return &CodeMsg{Code: xerr.ErrUnauthenticated, Msg: msg}
}

func Forbidden(msg string) error {
	return &CodeMsg{Code: xerr.ErrForbidden, Msg: msg}
}

// Store 将存储层错误归类为临时错误；已经分类过的错误原样返回
func Store(err error) error {
	if err == nil {
		return nil
	}
	var cm *CodeMsg
	if stderrors.As(err, &cm) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return &CodeMsg{Code: xerr.ErrStoreTimeout, Msg: "store timeout", Err: err}
	}
	return &CodeMsg{Code: xerr.ErrStoreUnavailable, Msg: "store unavailable", Err: err}
}

// CodeOf 取出错误码，未分类的错误视为服务器内部错误
func CodeOf(err error) int {
	var cm *CodeMsg
	if stderrors.As(err, &cm) {
		return cm.Code
	}
	return xerr.ErrInternalServer
}

// As 解包为 CodeMsg
func As(err error) (*CodeMsg, bool) {
	var cm *CodeMsg
	ok := stderrors.As(err, &cm)
	return cm, ok
}
