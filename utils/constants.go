// File: utils/constants.go
package utils

// DateLayout is the wire format of booking days.
const DateLayout = "2006-01-02"

// SlotHoldPrefix is the prefix used for Redis provisional slot holds.
const SlotHoldPrefix = "slothold:"

// Gin context keys set by the auth middleware.
const (
	ContextUserID = "userID"
	ContextRole   = "role"
	ContextLogger = "logger"
)
