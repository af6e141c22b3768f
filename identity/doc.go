// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity defines the cryptographic identity primitives:
// user IDs (Ed25519 public keys), signatures, and the millisecond
// timestamps used as feed sort keys and pagination cursors.
//
// [Signature.Verifies] is the sole trust boundary for write
// authenticity. The ingestion pipeline verifies a payload exactly once,
// before anything decodes or stores it; nothing downstream re-checks.
//
// User IDs and signatures travel in URLs in base58 form (Bitcoin
// alphabet). Decoding rejects malformed input with an error wrapping
// [ErrDecode]; it never panics.
package identity
