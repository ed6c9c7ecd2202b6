package imessage

import "time"

// AppleEpoch is the reference point for Apple timestamps (2001-01-01 00:00:00 UTC)
var AppleEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// NanosPerDay is one day in store units.
const NanosPerDay = int64(24 * time.Hour)

// ToTime converts an Apple nanosecond timestamp to a UTC time.
func ToTime(appleNanos int64) time.Time {
	return AppleEpoch.Add(time.Duration(appleNanos))
}

// FromTime converts a time to an Apple nanosecond timestamp.
// It is the exact inverse of ToTime for times within ±292 years of the epoch.
func FromTime(t time.Time) int64 {
	return int64(t.Sub(AppleEpoch))
}

// AppleTimestampToUnix converts Apple nanosecond timestamp to Unix seconds
func AppleTimestampToUnix(appleNanos int64) int64 {
	return ToTime(appleNanos).Unix()
}
