// Package transform converts raw upstream payloads into persisted rows.
package transform

import (
	"math"
	"time"
)

// Timestamps above this are treated as milliseconds.
const millisThreshold = 1e12

// ToUTCTime converts an epoch timestamp, in seconds or milliseconds, to
// a UTC time. A nil timestamp falls back to the current time so that
// primary-key columns never receive a null.
func ToUTCTime(ts *float64) time.Time {
	if ts == nil {
		return time.Now().UTC()
	}
	v := *ts
	if v > millisThreshold {
		v /= 1000
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// MillisToUTCTime converts an epoch-milliseconds value to a UTC time.
func MillisToUTCTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
