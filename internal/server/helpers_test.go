package server

import (
	"strconv"

	"github.com/iceymoss/go-agora/internal/auth"
)

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func principalOf(id uint64) auth.Principal {
	return auth.Principal{UserID: id, Role: auth.RoleUser}
}
