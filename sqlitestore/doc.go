// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitestore implements the store.Backend contract on SQLite.
//
// Layout: the items table holds the immutable signed payloads keyed by
// (user, signature). The users table is the known-user registry with
// per-user byte quotas. The profiles table is a pointer to each user's
// latest profile item with the display name denormalized at save time,
// so feed queries join for display names without decoding item bytes.
// The follows table materializes the follow list of each latest
// profile and drives the followed-users feed query.
//
// Feed ordering is ORDER BY unix_utc_ms DESC, signature DESC. The
// signature bytes break millisecond ties, making the order a strict
// total order as the pagination engine requires.
//
// SaveUserItem runs in one IMMEDIATE transaction: with WAL mode (see
// lib/sqlitepool) a concurrent reader sees either none or all of an
// item save, including its profile/follows side tables.
package sqlitestore
