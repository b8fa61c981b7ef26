package utils

import (
	"time"
)

// ctxKey is the private type for request-scoped context values
type ctxKey string

// Request-scoped context keys for observability
const (
	RequestIDKey  ctxKey = "request_id"
	UserAgentKey  ctxKey = "user_agent"
	IPAddressKey  ctxKey = "ip_address"
	EndpointKey   ctxKey = "endpoint"
	TimeoutKey    ctxKey = "timeout"
	CancelFuncKey ctxKey = "cancel_func"
)

// Token time constants
const (
	// AccessTokenTTL is the time-to-live for tenant access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds
	AccessTokenTTLSeconds = 86400
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Enrichment worker constants
const (
	// EmbeddingWorkerInterval is the default poll interval of the worker loop
	EmbeddingWorkerInterval = 5 * time.Second

	// EmbeddingLockStaleness is how old a processing lock must be before the
	// job is considered abandoned and reclaimable
	EmbeddingLockStaleness = 10 * time.Minute
)
