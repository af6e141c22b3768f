// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package item defines the schema for the signed payloads users
// publish, and the codec between that schema and bytes on the wire.
//
// An item is a proto3 message. Clients sign the encoded bytes, so the
// bytes, not the decoded struct, are the unit of truth: the server
// verifies and stores exactly what it received and never re-serializes
// a stored item. [Marshal] exists for producers (clients, tests); the
// read path only ever decodes.
//
// Wire schema:
//
//	message Item {
//	    int64 timestamp_ms_utc   = 1;
//	    int32 utc_offset_minutes = 2;
//	    oneof item_type {
//	        Post    post    = 3;
//	        Profile profile = 4;
//	    }
//	}
//	message Post {
//	    string title = 1;
//	    string body  = 2;
//	}
//	message Profile {
//	    string display_name = 1;
//	    string about        = 2;
//	    repeated Follow follows = 3;
//	}
//	message Follow {
//	    UserRef user         = 1;
//	    string  display_name = 2;
//	}
//	message UserRef {
//	    bytes bytes = 1;
//	}
//
// Unknown fields, including item_type variants newer than this server,
// decode without error. An item whose payload type is unrecognized is
// accepted and stored but never displayed by default: rejecting it
// would strand users on old servers.
package item
