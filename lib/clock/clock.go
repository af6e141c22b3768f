// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock provides the current time. Production functions that need the
// time accept a Clock (or are methods on a struct holding one) instead
// of calling time.Now directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
