// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// signet-server is the Signet publishing server. It accepts signed
// items over HTTP, serves them back byte-for-byte, and renders
// paginated JSON feeds.
//
// All validation lives in the ingest package and all pagination in the
// feed package; the handlers here only translate between HTTP and
// those cores: path and query parsing on the way in, status codes and
// JSON on the way out.
package main
