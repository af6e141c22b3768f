// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"time"

	"github.com/signet-project/signet/lib/clock"
)

// Timestamp is a signed count of milliseconds since the Unix epoch.
// It is the feed sort key and the pagination cursor value. Items carry
// their own declared timestamp; the server additionally stamps when it
// received them.
type Timestamp int64

// Now reads the current time from the injected clock, truncated to
// millisecond precision.
func Now(clk clock.Clock) Timestamp {
	return Timestamp(clk.Now().UnixMilli())
}

// UnixMilli returns the raw millisecond count.
func (t Timestamp) UnixMilli() int64 { return int64(t) }

// Time converts the timestamp to a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

// Before reports whether t is strictly earlier than other.
func (t Timestamp) Before(other Timestamp) bool { return t < other }
