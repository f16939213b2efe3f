package constants

import (
	"fmt"
	"time"
)

// Redis Cache Configuration
// This file centralizes all Redis cache keys and TTL values for ticketly
// Pattern: ticketly:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

// Semi-Static Data (Medium TTL: changes occasionally)
const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour    // event details
	TTL_SEMI_STATIC_QUICK  = 15 * time.Minute // event listings
)

// Availability changes on every reservation, so these stay short and are
// invalidated explicitly after each committed mutation anyway.
const (
	TTL_REALTIME_SHORT = 30 * time.Second
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "ticketly"
)

// ================== EVENTS MODULE ==================

// Event Cache Keys
const (
	// Event listings and searches
	CACHE_KEY_EVENTS_LIST  = CACHE_PREFIX + ":events:list"         // + :page:X:limit:Y:search:Z
	// Individual event details
	CACHE_KEY_EVENT_DETAIL = CACHE_PREFIX + ":events:detail:uuid:" // + event-id
)

// Event Cache TTLs
const (
	TTL_EVENT_LIST   = TTL_SEMI_STATIC_QUICK
	TTL_EVENT_DETAIL = TTL_SEMI_STATIC_MEDIUM
)

// ================== SEATS MODULE ==================

// Seat map cache keys, invalidated after every committed reserve or cancel
const (
	CACHE_KEY_SEAT_MAP = CACHE_PREFIX + ":seats:map:event:" // + event-id
)

// Seat map TTL
const (
	TTL_SEAT_MAP = TTL_REALTIME_SHORT
)

// ================== WAITLIST / LOCKS ==================

// Waitlist queues are sorted sets scored by a per-event INCR sequence
const (
	WAITLIST_KEY_QUEUE    = CACHE_PREFIX + ":waitlist:queue:event:" // + event-id
	WAITLIST_KEY_SEQUENCE = CACHE_PREFIX + ":waitlist:seq:event:"   // + event-id
	LOCK_KEY_EVENT        = CACHE_PREFIX + ":locks:event:"          // + event-id
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_EVENT_LIST = CACHE_PREFIX + ":events:list*"
)

// ================== HELPER FUNCTIONS ==================

// BuildEventListKey -> "ticketly:events:list:page:1:limit:10:search:foo"
func BuildEventListKey(page, limit int, search string) string {
	if search != "" {
		return fmt.Sprintf("%s:page:%d:limit:%d:search:%s", CACHE_KEY_EVENTS_LIST, page, limit, search)
	}
	return fmt.Sprintf("%s:page:%d:limit:%d", CACHE_KEY_EVENTS_LIST, page, limit)
}

// BuildEventDetailKey -> "ticketly:events:detail:uuid:<event-id>"
func BuildEventDetailKey(eventID string) string {
	return CACHE_KEY_EVENT_DETAIL + eventID
}

// BuildSeatMapKey -> "ticketly:seats:map:event:<event-id>"
func BuildSeatMapKey(eventID string) string {
	return CACHE_KEY_SEAT_MAP + eventID
}

// BuildWaitlistQueueKey -> "ticketly:waitlist:queue:event:<event-id>"
func BuildWaitlistQueueKey(eventID string) string {
	return WAITLIST_KEY_QUEUE + eventID
}

// BuildWaitlistSequenceKey -> "ticketly:waitlist:seq:event:<event-id>"
func BuildWaitlistSequenceKey(eventID string) string {
	return WAITLIST_KEY_SEQUENCE + eventID
}

// BuildEventLockKey -> "ticketly:locks:event:<event-id>"
func BuildEventLockKey(eventID string) string {
	return LOCK_KEY_EVENT + eventID
}
