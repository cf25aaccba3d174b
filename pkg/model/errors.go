package model

const (
	FlagNotFoundErrorCode = "FLAG_NOT_FOUND"
	ParseErrorCode        = "PARSE_ERROR"
)

const (
	StaticReason         = "STATIC"
	TargetingMatchReason = "TARGETING_MATCH"
	DefaultReason        = "DEFAULT"
	DisabledReason       = "DISABLED"
	ErrorReason          = "ERROR"
)

type NotificationType string

const (
	NotificationCreate NotificationType = "write"
	NotificationUpdate NotificationType = "update"
	NotificationDelete NotificationType = "delete"
)
