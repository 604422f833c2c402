// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package config

import (
	"time"
)

// EnvSpec is the basic environment configuration setup needed for the app to start
type EnvSpec struct {
	OtelGRPCEndpoint string `envconfig:"otel_grpc_endpoint"`
	OtelHTTPEndpoint string `envconfig:"otel_http_endpoint"`
	TracingEnabled   bool   `envconfig:"tracing_enabled" default:"true"`

	LogLevel string `envconfig:"log_level" default:"error"`
	Debug    bool   `envconfig:"debug" default:"false"`

	Port int `envconfig:"port" default:"8080"`

	DSN string `envconfig:"DSN" required:"true"`

	DBMaxConns        int32         `envconfig:"db_max_conns" default:"25"`
	DBMinConns        int32         `envconfig:"db_min_conns" default:"2"`
	DBMaxConnLifetime time.Duration `envconfig:"db_max_conn_lifetime" default:"1h"`
	DBMaxConnIdleTime time.Duration `envconfig:"db_max_conn_idle_time" default:"30m"`

	// Session verification. At least one verifier is required unless
	// InsecureSkipTokenVerification is set.
	JWTIssuer  string `envconfig:"jwt_issuer"`
	JWTJWKSURL string `envconfig:"jwt_jwks_url"`

	SupabaseURL            string `envconfig:"supabase_url"`
	SupabaseServiceKey     string `envconfig:"supabase_service_key"`
	SupabaseVerifySessions bool   `envconfig:"supabase_verify_sessions" default:"true"`

	InsecureSkipTokenVerification bool `envconfig:"insecure_skip_token_verification" default:"false"`

	// ServiceKey authenticates server-to-server calls acting on behalf of a tenant slug.
	ServiceKey string `envconfig:"service_key"`

	RedisURL       string        `envconfig:"redis_url"`
	IdempotencyTTL time.Duration `envconfig:"idempotency_ttl" default:"24h"`

	AuditWriteTimeout time.Duration `envconfig:"audit_write_timeout" default:"5s"`

	CORSAllowedOrigins []string `envconfig:"cors_allowed_origins" default:"*"`
}
