package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes"`

	// CORSOrigins lists allowed browser origins. Empty disables CORS headers.
	CORSOrigins []string `json:"cors_origins,omitempty"`
}

type RulesConfig struct {
	// Location overrides where banned-phrase rules are read from: a file path
	// (JSON or YAML), redis://host/db?key=..., gs://bucket/object,
	// postgres://... or sqlite://.... Conventional paths and the built-in set
	// are still tried after it.
	Location string `json:"location,omitempty"`

	// Watch invalidates the rule cache when a file-backed rule source changes.
	Watch bool `json:"watch,omitempty"`
}

type RateLimitConfig struct {
	// RPS is the per-client refill rate. Zero disables rate limiting.
	RPS   float64 `json:"rps"`
	Burst int     `json:"burst"`
}

type SessionsConfig struct {
	IdleTimeout Duration `json:"idle_timeout"`
	MaxSessions int      `json:"max_sessions,omitempty"`
}

type AdminConfig struct {
	// JWTSecret signs HS256 bearer tokens for /v1/admin. Empty disables the
	// admin routes.
	JWTSecret string `json:"jwt_secret,omitempty"`
}

type Config struct {
	Env       string          `json:"env"`
	HTTP      HTTPConfig      `json:"http"`
	Rules     RulesConfig     `json:"rules"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Sessions  SessionsConfig  `json:"sessions"`
	Admin     AdminConfig     `json:"admin"`
}
