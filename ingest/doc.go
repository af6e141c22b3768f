// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest implements the write path: the ordered validation
// pipeline between an inbound PUT and the storage backend.
//
// Every check short-circuits with a specific outcome, and the order is
// load-bearing. The size cap is enforced before any body byte is read,
// so a forged length header cannot make the server buffer an oversized
// body. Signature verification runs strictly before the payload is
// decoded, so unauthenticated bytes never reach the parser. Exactly
// one durable write happens on success; none on any rejection.
package ingest
