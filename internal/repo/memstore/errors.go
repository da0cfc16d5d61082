package memstore

import "errors"

// ErrDuplicateKey 违反唯一约束，对应数据库的 duplicate key 错误
var ErrDuplicateKey = errors.New("memstore: duplicate key")
