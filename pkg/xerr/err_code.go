package xerr

import "net/http"

const (
	ErrInternalServer = 500 // HTTP 500

	ErrBadRequest   = 1000 // HTTP 400
	ErrInvalidInput = 1001 // HTTP 400
	ErrInvalidJSON  = 1003 // HTTP 400

	ErrUnauthenticated = 1100 // HTTP 401
	ErrInvalidIdentity = 1101 // HTTP 401

	ErrForbidden = 1200 // HTTP 403

	ErrNotFound         = 1300 // HTTP 404
	ErrResourceNotFound = 1301 // HTTP 404

	ErrConflict        = 1400 // HTTP 409
	ErrVotingClosed    = 1401 // HTTP 409
	ErrAlreadyReported = 1402 // HTTP 409

	ErrTransient        = 1500 // HTTP 503
	ErrStoreUnavailable = 1501 // HTTP 503
	ErrStoreTimeout     = 1502 // HTTP 503
)

// HTTPStatus 按错误码所在区间映射 HTTP 状态码
func HTTPStatus(code int) int {
	switch {
	case code >= ErrBadRequest && code < ErrUnauthenticated:
		return http.StatusBadRequest
	case code >= ErrUnauthenticated && code < ErrForbidden:
		return http.StatusUnauthorized
	case code >= ErrForbidden && code < ErrNotFound:
		return http.StatusForbidden
	case code >= ErrNotFound && code < ErrConflict:
		return http.StatusNotFound
	case code >= ErrConflict && code < ErrTransient:
		return http.StatusConflict
	case code >= ErrTransient && code < 1600:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable 调用方是否可以重试（仅临时性存储错误）
func Retryable(code int) bool {
	return code >= ErrTransient && code < 1600
}
