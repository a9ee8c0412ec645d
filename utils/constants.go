package utils

import (
	"time"
)

// Context keys carrying request-scoped values from handlers into flows
type contextKey string

// RequestIDKey holds the request id assigned by the requestid middleware
const RequestIDKey contextKey = "request_id"

// Wire format constants
const (
	// TimestampLayout is the layout bottle timestamps are rendered with
	TimestampLayout = "2006-01-02 15:04:05"

	// WelcomeMessage is returned by the root endpoint
	WelcomeMessage = "Welcome to the Drift Bottle Core API!"
)

// Cache keys, relative to the configured redis prefix
const (
	ActiveBottleCountCacheKey = "bottles:active_count"

	// ActiveBottleCountGenerationKey is bumped by every write that changes the unpicked set.
	// A recount is cached only if the generation did not move while it ran.
	ActiveBottleCountGenerationKey = "bottles:active_count:gen"
)

// Request handling constants
const (
	// DefaultRequestTimeout bounds the store work of a single request
	DefaultRequestTimeout = 15 * time.Second

	// ClaimContentionRetryAfter is advertised to clients whose claim lost every race
	ClaimContentionRetryAfter = 1
)
