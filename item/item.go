// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package item

import (
	"fmt"

	"github.com/signet-project/signet/identity"
)

// Item is a decoded signed payload. Exactly one of Post and Profile is
// non-nil for the payload types this server recognizes; both are nil
// when the item carries a payload type from a newer schema revision.
type Item struct {
	// TimestampMsUTC is the author's declared creation time in
	// milliseconds since the Unix epoch. It is the feed sort key.
	TimestampMsUTC int64

	// UTCOffsetMinutes is the author's UTC offset at creation time.
	// Display-only; never used for ordering.
	UTCOffsetMinutes int32

	Post    *Post
	Profile *Profile
}

// Post is a published entry with an optional title.
type Post struct {
	Title string
	Body  string
}

// Profile is a user's self-description and follow list. A new profile
// item wholly replaces the previous one.
type Profile struct {
	DisplayName string
	About       string
	Follows     []Follow
}

// Follow is a weak reference to another identity: the followed user ID
// plus the display name the follower chose for them. The followed
// identity need not exist on this server.
type Follow struct {
	User        identity.UserID
	DisplayName string
}

// Timestamp returns the item's declared timestamp.
func (it *Item) Timestamp() identity.Timestamp {
	return identity.Timestamp(it.TimestampMsUTC)
}

// maxUTCOffsetMinutes bounds the declared UTC offset to ±24 hours.
const maxUTCOffsetMinutes = 24 * 60

// Validate enforces the structural invariants the wire schema itself
// cannot express. It runs after signature verification and before
// persistence; failing it rejects the write.
//
// An item with an unrecognized payload type passes validation: there
// is nothing to check, and newer-schema items must remain storable.
func (it *Item) Validate() error {
	if it.UTCOffsetMinutes < -maxUTCOffsetMinutes || it.UTCOffsetMinutes > maxUTCOffsetMinutes {
		return fmt.Errorf("item: utc_offset_minutes %d out of range [%d, %d]", it.UTCOffsetMinutes, -maxUTCOffsetMinutes, maxUTCOffsetMinutes)
	}

	switch {
	case it.Post != nil:
		if it.Post.Body == "" {
			return fmt.Errorf("item: post body is required")
		}
	case it.Profile != nil:
		seen := make(map[identity.UserID]struct{}, len(it.Profile.Follows))
		for _, follow := range it.Profile.Follows {
			if follow.User.IsZero() {
				return fmt.Errorf("item: profile follow is missing a user ID")
			}
			if _, dup := seen[follow.User]; dup {
				return fmt.Errorf("item: profile follows %s more than once", follow.User)
			}
			seen[follow.User] = struct{}{}
		}
	}

	return nil
}

// DisplayByDefault is the shared display filter for all feeds: posts
// appear, profile updates do not (they are data, not timeline
// entries), and unrecognized payload types are never shown. Every read
// endpoint that filters a feed uses this one predicate.
func DisplayByDefault(it *Item) bool {
	return it.Post != nil
}
