// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the standard SQLite connection pool for
// Signet storage.
//
// It wraps zombiezen.com/go/sqlite with production defaults: WAL
// journal mode so readers never block the single writer (an item save
// must be invisible to concurrent feed reads until it commits), NORMAL
// synchronous, and a busy timeout instead of immediate SQLITE_BUSY on
// write contention.
//
// The pool is built on sqlitex.Pool. Callers [Pool.Take] a connection,
// perform work, and [Pool.Put] it back. Connections are NOT safe for
// concurrent use: each goroutine must hold its own connection for the
// duration of its work.
//
// This package is intentionally thin: it applies pragmas and exposes
// the underlying zombiezen types directly. Storage code writes SQL and
// uses sqlitex.Execute; there is no query-builder layer on top.
package sqlitepool
