// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package store defines the persistence contract the ingestion
// pipeline and the feed engine depend on. It says nothing about how a
// backend is implemented; the core relies on two guarantees only:
//
//   - Range queries yield rows in strictly descending
//     (timestamp, signature) order. Signature bytes are the timestamp
//     tiebreak, so the order is a total order.
//   - SaveUserItem is atomic with respect to concurrent readers: a
//     reader never observes a half-written row.
//
// Range queries are iterator-valued ([iter.Seq2]): the consumer pulls
// rows and stops early by breaking out of the range loop. The second
// iteration value carries a backend read error; after yielding a
// non-nil error the sequence ends.
package store
