// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"iter"

	"github.com/signet-project/signet/identity"
	"github.com/signet-project/signet/item"
)

// ErrNotFound is returned by point lookups when no matching row
// exists.
var ErrNotFound = errors.New("not found")

// ItemRow is the durable, validated unit of storage. It is created
// exactly once by the ingestion pipeline after every check passes, and
// is immutable thereafter.
type ItemRow struct {
	User      identity.UserID
	Signature identity.Signature

	// Timestamp is the item's own declared creation time, the feed
	// sort key.
	Timestamp identity.Timestamp

	// Received is the server clock reading at ingestion time.
	Received identity.Timestamp

	// ItemBytes is the exact payload that was signature-verified.
	// It is never re-serialized: the stored bytes are the source of
	// truth for later re-verification or redistribution.
	ItemBytes []byte
}

// ItemDisplayRow annotates an item row with the author's current
// display name for rendering. Read-side only; never persisted.
type ItemDisplayRow struct {
	ItemRow

	// DisplayName is the author's current profile display name, or
	// "" if the author has no profile on this server.
	DisplayName string
}

// Backend is the persistence and query surface. Implementations are
// cheap to share across requests and safe for concurrent use.
type Backend interface {
	// UserItem returns the stored row for (user, signature), or
	// ErrNotFound.
	UserItem(ctx context.Context, user identity.UserID, sig identity.Signature) (*ItemRow, error)

	// UserProfile returns the row holding user's latest profile item,
	// or ErrNotFound.
	UserProfile(ctx context.Context, user identity.UserID) (*ItemRow, error)

	// UserItemExists reports whether a row for (user, signature) is
	// already stored.
	UserItemExists(ctx context.Context, user identity.UserID, sig identity.Signature) (bool, error)

	// UserKnown reports whether user may publish to this server.
	UserKnown(ctx context.Context, user identity.UserID) (bool, error)

	// QuotaCheckItem decides whether storing itemBytes for user would
	// exceed policy. A non-empty denyReason denies the write and is
	// shown to the caller verbatim. The decoded item is passed
	// alongside the raw bytes so backends can apply type-specific
	// policy without re-decoding.
	QuotaCheckItem(ctx context.Context, user identity.UserID, itemBytes []byte, it *item.Item) (denyReason string, err error)

	// SaveUserItem persists a fully validated row. The decoded item
	// accompanies the raw bytes so the backend can index type-specific
	// fields (profile display names, follows) without re-decoding.
	SaveUserItem(ctx context.Context, row *ItemRow, it *item.Item) error

	// HomepageItems yields every stored item with timestamp strictly
	// less than before, newest first.
	HomepageItems(ctx context.Context, before identity.Timestamp) iter.Seq2[ItemDisplayRow, error]

	// UserItems yields user's own items with timestamp strictly less
	// than before, newest first.
	UserItems(ctx context.Context, user identity.UserID, before identity.Timestamp) iter.Seq2[ItemRow, error]

	// UserFeedItems yields items authored by user or by anyone user's
	// profile follows, with timestamp strictly less than before,
	// newest first.
	UserFeedItems(ctx context.Context, user identity.UserID, before identity.Timestamp) iter.Seq2[ItemDisplayRow, error]
}
