package types

type RunMode string

const (
	// ModeLocal runs the full service with in-memory infrastructure
	ModeLocal RunMode = "local"
	// ModeServer runs the full service against postgres
	ModeServer RunMode = "server"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
)
