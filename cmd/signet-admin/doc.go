// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// signet-admin manages the user registry of a Signet server database.
// It opens the SQLite file directly, so run it on the server host. The
// server picks up registry changes on the next request; no restart is
// needed.
//
// Usage:
//
//	signet-admin --db signet.db user add <user-id> [--quota 10000000] [--note "alice"]
//	signet-admin --db signet.db user list
//	signet-admin --db signet.db user remove <user-id>
package main
