package enum

// ErrorCode is the machine readable error identifier returned in ApiError responses.
type ErrorCode string

const (
	ConfigError     ErrorCode = "ConfigError"
	TooManyRequests ErrorCode = "TooManyRequests"
	UpgradeFailed   ErrorCode = "UpgradeFailed"
	CapacityReached ErrorCode = "CapacityReached"
	NotFound        ErrorCode = "NotFound"
)
