package constants

import "time"

const (
	AppName            = "habitloop"
	DefaultKeyringUser = "jwt-secret"
	KeyringAPIKeyUser  = "extract-api-key"
	KeyringDSNUser     = "database-dsn"
	DefaultConfigDir   = "~/.config/habitloop"
	DefaultConfigFile  = "config.yaml"
	DefaultDBFile      = "habitloop.db"
	Version            = "v0.1.0"
	EnvPrefix          = "HABITLOOP"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimestampFormat is the fixed-width UTC layout used for SQLite text
	// columns so lexical order matches chronological order.
	TimestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

	// Cycle defaults
	DefaultResetHour    = 5
	DefaultTimezone     = "Local"
	CycleLength         = 24 * time.Hour
	CyclesPerWeek       = 7
	DefaultDailyCycles  = 7
	DefaultWeeklyBlocks = 4

	// Server defaults
	DefaultServerAddr   = ":8080"
	DefaultTokenIssuer  = "habitloop"
	DefaultTokenTTL     = 7 * 24 * time.Hour
	MaxInputTextLength  = 4096
	MaxCompleteAttempts = 3

	// Extraction defaults
	DefaultExtractModel   = "gemini-2.5-flash"
	DefaultExtractBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultExtractTimeout = 30 * time.Second
)
