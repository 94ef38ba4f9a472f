package constants

import (
	"fmt"
	"time"
)

// Redis Cache Configuration
// This file centralizes all Redis keys and TTL values for seatflow
// Pattern: seatflow:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_SEMI_STATIC_QUICK = 15 * time.Minute // 15 minutes - for event listings
	TTL_DYNAMIC_MEDIUM    = 10 * time.Minute // 10 minutes - for event details
	TTL_DYNAMIC_SHORT     = 5 * time.Minute  // 5 minutes - for seat summaries
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "seatflow"
)

// ================== EVENTS MODULE ==================

// Event Cache Keys
const (
	// Event listings
	CACHE_KEY_EVENTS_LIST = CACHE_PREFIX + ":events:list" // + :page:X:limit:Y

	// Individual event details, addressable by either identifier
	CACHE_KEY_EVENT_DETAIL          = CACHE_PREFIX + ":events:detail:uuid:" // + event-id
	CACHE_KEY_EVENT_DETAIL_EXTERNAL = CACHE_PREFIX + ":events:detail:ext:"  // + external-id
)

// Event Cache TTLs
const (
	TTL_EVENT_LIST   = TTL_DYNAMIC_MEDIUM // 10 minutes
	TTL_EVENT_DETAIL = TTL_DYNAMIC_MEDIUM // 10 minutes
)

// ================== SESSIONS MODULE ==================

// Purchase sessions live only in Redis; the key TTL is the session expiry
const (
	CACHE_KEY_PURCHASE_SESSION = CACHE_PREFIX + ":sessions:purchase:user:" // + user-id
)

// ================== RATE LIMIT MODULE ==================

const (
	CACHE_KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit:" // + ip:bucket
)

// ================== CACHE INVALIDATION PATTERNS ==================

// Patterns for cache invalidation (used with Redis SCAN)
const (
	PATTERN_INVALIDATE_EVENT_ALL  = CACHE_PREFIX + ":events:*"
	PATTERN_INVALIDATE_EVENT_LIST = CACHE_KEY_EVENTS_LIST + ":*"
)

// ================== HELPER FUNCTIONS ==================

// BuildEventListKey -> "seatflow:events:list:page:1:limit:10"
func BuildEventListKey(page, limit int) string {
	return CACHE_KEY_EVENTS_LIST + ":page:" + fmt.Sprintf("%d", page) + ":limit:" + fmt.Sprintf("%d", limit)
}

func BuildEventDetailKey(eventID string) string {
	return CACHE_KEY_EVENT_DETAIL + eventID
}

func BuildEventExternalKey(externalID int64) string {
	return CACHE_KEY_EVENT_DETAIL_EXTERNAL + fmt.Sprintf("%d", externalID)
}

func BuildPurchaseSessionKey(userID string) string {
	return CACHE_KEY_PURCHASE_SESSION + userID
}

func BuildRateLimitKey(clientIP, bucket string) string {
	return CACHE_KEY_RATE_LIMIT + clientIP + ":" + bucket
}

/*
INVALIDATION:

1. When an event is created, updated or deactivated by catalog sync:
   - Delete: seatflow:events:detail:uuid:{eventID}
   - Delete: seatflow:events:detail:ext:{externalID}
   - Delete: seatflow:events:list:*

2. When a seat notification arrives:
   - Delete: seatflow:events:list:*
   (seat state itself is never cached, it is always queried live)
*/
