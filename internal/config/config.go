package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`

	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// TypingIdle is how long after the last keystroke the stop-typing
	// signal fires.
	TypingIdle time.Duration `mapstructure:"typing_idle" yaml:"typing_idle"`
	// HistoryPageSize caps thread history pages.
	HistoryPageSize int `mapstructure:"history_page_size" yaml:"history_page_size"`
	// MessageRateLimit caps messages per minute per connection; zero
	// disables limiting.
	MessageRateLimit int `mapstructure:"message_rate_limit" yaml:"message_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "community.db",
		LogLevel:          "info",
		JWTSecret:         "",
		JWTIssuer:         "community-server",
		JWTAudience:       "community-clients",
		TokenTTL:          24 * time.Hour,
		AllowedOrigins:    []string{"http://localhost:5173"},
		TypingIdle:        3 * time.Second,
		HistoryPageSize:   50,
		MessageRateLimit:  120,
	}
}
