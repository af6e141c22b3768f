// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the shared entrypoint helpers for Signet
// binaries.
package process
