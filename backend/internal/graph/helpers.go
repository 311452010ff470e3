package graph

import (
	"time"
)

// ============================================================================
// Record Accessors
// ============================================================================

// String returns the string stored under key, or "" when absent or mistyped
func (r Record) String(key string) string {
	val, ok := r[key]
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

// Int64 returns the integer stored under key
func (r Record) Int64(key string) int64 {
	val, ok := r[key]
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Float64 returns the number stored under key; integers are widened
func (r Record) Float64(key string) float64 {
	val, ok := r[key]
	if !ok || val == nil {
		return 0.0
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0.0
}

// Time returns the instant stored under key. Neo4j datetime values arrive as
// time.Time; RFC 3339 strings are parsed.
func (r Record) Time(key string) time.Time {
	val, ok := r[key]
	if !ok || val == nil {
		return time.Time{}
	}
	switch v := val.(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
