// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/signet-project/signet/identity"
	"github.com/signet-project/signet/store"
)

// errStopIteration aborts a sqlitex.Execute row loop when the consumer
// of an iterator breaks out early. Never surfaced to callers.
var errStopIteration = errors.New("stop iteration")

// itemColumns is the shared SELECT list for item row scans. Order
// matters: scanItemRow reads by position.
const itemColumns = "i.user_id, i.signature, i.unix_utc_ms, i.received_utc_ms, i.bytes"

// HomepageItems yields every stored item older than before, newest
// first, annotated with the author's current display name.
func (s *Store) HomepageItems(ctx context.Context, before identity.Timestamp) iter.Seq2[store.ItemDisplayRow, error] {
	query := `SELECT ` + itemColumns + `, COALESCE(p.display_name, '')
		FROM items i LEFT JOIN profiles p ON p.user_id = i.user_id
		WHERE i.unix_utc_ms < ?
		ORDER BY i.unix_utc_ms DESC, i.signature DESC`

	return s.displayRows(ctx, "homepage items", query, &sqlitex.ExecOptions{
		Args: []any{before.UnixMilli()},
	})
}

// UserItems yields user's own items older than before, newest first.
func (s *Store) UserItems(ctx context.Context, user identity.UserID, before identity.Timestamp) iter.Seq2[store.ItemRow, error] {
	query := `SELECT ` + itemColumns + `
		FROM items i
		WHERE i.user_id = ? AND i.unix_utc_ms < ?
		ORDER BY i.unix_utc_ms DESC, i.signature DESC`

	return func(yield func(store.ItemRow, error) bool) {
		conn, err := s.pool.Take(ctx)
		if err != nil {
			yield(store.ItemRow{}, fmt.Errorf("sqlitestore: user items: %w", err))
			return
		}
		defer s.pool.Put(conn)

		stopped := false
		err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: []any{user.Bytes(), before.UnixMilli()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				row, err := scanItemRow(stmt)
				if err != nil {
					return err
				}
				if !yield(row, nil) {
					stopped = true
					return errStopIteration
				}
				return nil
			},
		})
		if err != nil && !stopped {
			yield(store.ItemRow{}, fmt.Errorf("sqlitestore: user items: %w", err))
		}
	}
}

// UserFeedItems yields items older than before authored by user or by
// anyone user's latest profile follows, newest first, with the
// authors' current display names.
func (s *Store) UserFeedItems(ctx context.Context, user identity.UserID, before identity.Timestamp) iter.Seq2[store.ItemDisplayRow, error] {
	query := `SELECT ` + itemColumns + `, COALESCE(p.display_name, '')
		FROM items i LEFT JOIN profiles p ON p.user_id = i.user_id
		WHERE i.unix_utc_ms < :before
		  AND (i.user_id = :user
		       OR i.user_id IN (SELECT followed_user FROM follows WHERE source_user = :user))
		ORDER BY i.unix_utc_ms DESC, i.signature DESC`

	return s.displayRows(ctx, "user feed items", query, &sqlitex.ExecOptions{
		Named: map[string]any{
			":before": before.UnixMilli(),
			":user":   user.Bytes(),
		},
	})
}

// displayRows runs an item+display-name query as a pull iterator. The
// consumer stops early by breaking; that aborts the underlying row
// loop via errStopIteration without yielding an error.
func (s *Store) displayRows(ctx context.Context, operation, query string, opts *sqlitex.ExecOptions) iter.Seq2[store.ItemDisplayRow, error] {
	return func(yield func(store.ItemDisplayRow, error) bool) {
		conn, err := s.pool.Take(ctx)
		if err != nil {
			yield(store.ItemDisplayRow{}, fmt.Errorf("sqlitestore: %s: %w", operation, err))
			return
		}
		defer s.pool.Put(conn)

		stopped := false
		opts.ResultFunc = func(stmt *sqlite.Stmt) error {
			row, err := scanItemRow(stmt)
			if err != nil {
				return err
			}
			display := store.ItemDisplayRow{
				ItemRow:     row,
				DisplayName: stmt.ColumnText(5),
			}
			if !yield(display, nil) {
				stopped = true
				return errStopIteration
			}
			return nil
		}

		if err := sqlitex.Execute(conn, query, opts); err != nil && !stopped {
			yield(store.ItemDisplayRow{}, fmt.Errorf("sqlitestore: %s: %w", operation, err))
		}
	}
}

// scanItemRow reads an item row from the itemColumns select list. A
// scan failure means the stored row is corrupt; it aborts the whole
// query rather than being skipped, so data loss is visible.
func scanItemRow(stmt *sqlite.Stmt) (store.ItemRow, error) {
	rawUser := make([]byte, stmt.ColumnLen(0))
	stmt.ColumnBytes(0, rawUser)
	user, err := identity.UserIDFromBytes(rawUser)
	if err != nil {
		return store.ItemRow{}, fmt.Errorf("corrupt stored user_id: %w", err)
	}

	rawSig := make([]byte, stmt.ColumnLen(1))
	stmt.ColumnBytes(1, rawSig)
	sig, err := identity.SignatureFromBytes(rawSig)
	if err != nil {
		return store.ItemRow{}, fmt.Errorf("corrupt stored signature: %w", err)
	}

	bytes := make([]byte, stmt.ColumnLen(4))
	stmt.ColumnBytes(4, bytes)

	return store.ItemRow{
		User:      user,
		Signature: sig,
		Timestamp: identity.Timestamp(stmt.ColumnInt64(2)),
		Received:  identity.Timestamp(stmt.ColumnInt64(3)),
		ItemBytes: bytes,
	}, nil
}
