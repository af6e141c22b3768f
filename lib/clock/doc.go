// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts reading the current time so that it can be
// controlled in tests.
//
// Production code injects [Real]; tests inject [Fake] and move time
// explicitly. Signet reads the clock in exactly two situations: to
// stamp the "received" time of an accepted item, and to default the
// upper bound of a feed page when the caller supplies no cursor. Both
// must be deterministic under test.
package clock
