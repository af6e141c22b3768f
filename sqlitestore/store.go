// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitestore

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/signet-project/signet/identity"
	"github.com/signet-project/signet/item"
	"github.com/signet-project/signet/lib/clock"
	"github.com/signet-project/signet/lib/sqlitepool"
	"github.com/signet-project/signet/store"
)

const schema = `
	CREATE TABLE IF NOT EXISTS items (
		user_id         BLOB NOT NULL,
		signature       BLOB NOT NULL,
		unix_utc_ms     INTEGER NOT NULL,
		received_utc_ms INTEGER NOT NULL,
		bytes           BLOB NOT NULL,
		PRIMARY KEY (user_id, signature)
	);
	CREATE INDEX IF NOT EXISTS idx_items_timeline
		ON items(unix_utc_ms DESC, signature DESC);
	CREATE INDEX IF NOT EXISTS idx_items_user_timeline
		ON items(user_id, unix_utc_ms DESC, signature DESC);

	CREATE TABLE IF NOT EXISTS users (
		user_id      BLOB PRIMARY KEY,
		quota_bytes  INTEGER NOT NULL DEFAULT 0,
		note         TEXT NOT NULL DEFAULT '',
		added_utc_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id      BLOB PRIMARY KEY,
		signature    BLOB NOT NULL,
		unix_utc_ms  INTEGER NOT NULL,
		display_name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS follows (
		source_user   BLOB NOT NULL,
		followed_user BLOB NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (source_user, followed_user)
	);
`

// Store is the SQLite-backed implementation of [store.Backend]. Safe
// for concurrent use; one Store is shared by all requests.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist. Required.
	Path string

	// PoolSize is the connection pool size. Defaults per sqlitepool.
	PoolSize int

	// Clock stamps user registrations. Required.
	Clock clock.Clock

	// Logger receives operational messages.
	Logger *slog.Logger
}

// Open creates the store, creating the database file and schema if
// they do not exist.
func Open(cfg Config) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("sqlitestore: Clock is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: %w", err)
	}

	return &Store{pool: pool, clock: cfg.Clock, logger: logger}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// UserItem returns the stored row for (user, signature), or
// store.ErrNotFound.
func (s *Store) UserItem(ctx context.Context, user identity.UserID, sig identity.Signature) (*store.ItemRow, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: user item: %w", err)
	}
	defer s.pool.Put(conn)

	var row *store.ItemRow
	err = sqlitex.Execute(conn,
		`SELECT user_id, signature, unix_utc_ms, received_utc_ms, bytes
		 FROM items WHERE user_id = ? AND signature = ?`,
		&sqlitex.ExecOptions{
			Args: []any{user.Bytes(), sig.Bytes()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				scanned, err := scanItemRow(stmt)
				if err != nil {
					return err
				}
				row = &scanned
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: user item: %w", err)
	}
	if row == nil {
		return nil, store.ErrNotFound
	}
	return row, nil
}

// UserProfile returns the row holding user's latest profile item, or
// store.ErrNotFound.
func (s *Store) UserProfile(ctx context.Context, user identity.UserID) (*store.ItemRow, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: user profile: %w", err)
	}
	defer s.pool.Put(conn)

	var row *store.ItemRow
	err = sqlitex.Execute(conn,
		`SELECT i.user_id, i.signature, i.unix_utc_ms, i.received_utc_ms, i.bytes
		 FROM profiles p JOIN items i
		   ON i.user_id = p.user_id AND i.signature = p.signature
		 WHERE p.user_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{user.Bytes()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				scanned, err := scanItemRow(stmt)
				if err != nil {
					return err
				}
				row = &scanned
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: user profile: %w", err)
	}
	if row == nil {
		return nil, store.ErrNotFound
	}
	return row, nil
}

// UserItemExists reports whether (user, signature) is already stored.
func (s *Store) UserItemExists(ctx context.Context, user identity.UserID, sig identity.Signature) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("sqlitestore: item exists: %w", err)
	}
	defer s.pool.Put(conn)

	exists := false
	err = sqlitex.Execute(conn,
		"SELECT 1 FROM items WHERE user_id = ? AND signature = ?",
		&sqlitex.ExecOptions{
			Args: []any{user.Bytes(), sig.Bytes()},
			ResultFunc: func(*sqlite.Stmt) error {
				exists = true
				return nil
			},
		})
	if err != nil {
		return false, fmt.Errorf("sqlitestore: item exists: %w", err)
	}
	return exists, nil
}

// UserKnown reports whether user is registered on this server.
func (s *Store) UserKnown(ctx context.Context, user identity.UserID) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("sqlitestore: user known: %w", err)
	}
	defer s.pool.Put(conn)

	return userKnown(conn, user)
}

func userKnown(conn *sqlite.Conn, user identity.UserID) (bool, error) {
	known := false
	err := sqlitex.Execute(conn,
		"SELECT 1 FROM users WHERE user_id = ?",
		&sqlitex.ExecOptions{
			Args: []any{user.Bytes()},
			ResultFunc: func(*sqlite.Stmt) error {
				known = true
				return nil
			},
		})
	if err != nil {
		return false, fmt.Errorf("sqlitestore: user known: %w", err)
	}
	return known, nil
}

// QuotaCheckItem denies the write when the user's stored bytes plus
// the new item would exceed their registered quota. A quota of zero or
// less means unlimited.
func (s *Store) QuotaCheckItem(ctx context.Context, user identity.UserID, itemBytes []byte, _ *item.Item) (string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("sqlitestore: quota check: %w", err)
	}
	defer s.pool.Put(conn)

	var quota int64
	found := false
	err = sqlitex.Execute(conn,
		"SELECT quota_bytes FROM users WHERE user_id = ?",
		&sqlitex.ExecOptions{
			Args: []any{user.Bytes()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				quota = stmt.ColumnInt64(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return "", fmt.Errorf("sqlitestore: quota check: %w", err)
	}
	if !found {
		// The pipeline checks UserKnown first, but the registry may
		// change between checks. Deny rather than assume unlimited.
		return "User is not registered on this server.", nil
	}
	if quota <= 0 {
		return "", nil
	}

	usage, err := userUsageBytes(conn, user)
	if err != nil {
		return "", err
	}

	if usage+int64(len(itemBytes)) > quota {
		return fmt.Sprintf("Storage quota exceeded: %d of %d bytes used, item needs %d.", usage, quota, len(itemBytes)), nil
	}
	return "", nil
}

func userUsageBytes(conn *sqlite.Conn, user identity.UserID) (int64, error) {
	var usage int64
	err := sqlitex.Execute(conn,
		"SELECT COALESCE(SUM(LENGTH(bytes)), 0) FROM items WHERE user_id = ?",
		&sqlitex.ExecOptions{
			Args: []any{user.Bytes()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				usage = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: usage: %w", err)
	}
	return usage, nil
}

// SaveUserItem persists a validated row in one IMMEDIATE transaction.
// When the item is a profile newer than the user's current one, the
// profile pointer and the materialized follow list are replaced in the
// same transaction.
func (s *Store) SaveUserItem(ctx context.Context, row *store.ItemRow, it *item.Item) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlitestore: save item: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`INSERT INTO items (user_id, signature, unix_utc_ms, received_utc_ms, bytes)
		 VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				row.User.Bytes(),
				row.Signature.Bytes(),
				row.Timestamp.UnixMilli(),
				row.Received.UnixMilli(),
				row.ItemBytes,
			},
		})
	if err != nil {
		return fmt.Errorf("sqlitestore: insert item: %w", err)
	}

	if it.Profile != nil {
		if err := s.updateProfile(conn, row, it.Profile); err != nil {
			return err
		}
	}

	return nil
}

// updateProfile replaces the profile pointer and follow list when the
// incoming profile item is newer than the stored one. Items can arrive
// out of order (a client re-publishing history), so an older profile
// must not clobber a newer one.
func (s *Store) updateProfile(conn *sqlite.Conn, row *store.ItemRow, profile *item.Profile) error {
	current := int64(-1)
	err := sqlitex.Execute(conn,
		"SELECT unix_utc_ms FROM profiles WHERE user_id = ?",
		&sqlitex.ExecOptions{
			Args: []any{row.User.Bytes()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				current = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("sqlitestore: current profile: %w", err)
	}
	if current >= row.Timestamp.UnixMilli() {
		return nil
	}

	err = sqlitex.Execute(conn,
		`INSERT INTO profiles (user_id, signature, unix_utc_ms, display_name)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			signature = excluded.signature,
			unix_utc_ms = excluded.unix_utc_ms,
			display_name = excluded.display_name`,
		&sqlitex.ExecOptions{
			Args: []any{
				row.User.Bytes(),
				row.Signature.Bytes(),
				row.Timestamp.UnixMilli(),
				profile.DisplayName,
			},
		})
	if err != nil {
		return fmt.Errorf("sqlitestore: upsert profile: %w", err)
	}

	err = sqlitex.Execute(conn,
		"DELETE FROM follows WHERE source_user = ?",
		&sqlitex.ExecOptions{Args: []any{row.User.Bytes()}})
	if err != nil {
		return fmt.Errorf("sqlitestore: clear follows: %w", err)
	}

	for _, follow := range profile.Follows {
		err = sqlitex.Execute(conn,
			`INSERT INTO follows (source_user, followed_user, display_name)
			 VALUES (?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{row.User.Bytes(), follow.User.Bytes(), follow.DisplayName},
			})
		if err != nil {
			return fmt.Errorf("sqlitestore: insert follow: %w", err)
		}
	}

	return nil
}

// UserRecord describes a registered user, for the operator tooling.
type UserRecord struct {
	User       identity.UserID
	QuotaBytes int64
	Note       string
	Added      identity.Timestamp
}

// AddUser registers user as allowed to publish, or updates their quota
// and note if already registered. quotaBytes <= 0 means unlimited.
func (s *Store) AddUser(ctx context.Context, user identity.UserID, quotaBytes int64, note string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlitestore: add user: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO users (user_id, quota_bytes, note, added_utc_ms)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			quota_bytes = excluded.quota_bytes,
			note = excluded.note`,
		&sqlitex.ExecOptions{
			Args: []any{user.Bytes(), quotaBytes, note, identity.Now(s.clock).UnixMilli()},
		})
	if err != nil {
		return fmt.Errorf("sqlitestore: add user: %w", err)
	}

	s.logger.Info("user registered", "user", user.String(), "quota_bytes", quotaBytes)
	return nil
}

// RemoveUser deletes user from the registry. Their stored items are
// untouched; they simply cannot publish new ones.
func (s *Store) RemoveUser(ctx context.Context, user identity.UserID) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlitestore: remove user: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"DELETE FROM users WHERE user_id = ?",
		&sqlitex.ExecOptions{Args: []any{user.Bytes()}})
	if err != nil {
		return fmt.Errorf("sqlitestore: remove user: %w", err)
	}
	return nil
}

// ListUsers returns all registered users, oldest registration first.
func (s *Store) ListUsers(ctx context.Context) ([]UserRecord, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list users: %w", err)
	}
	defer s.pool.Put(conn)

	var records []UserRecord
	err = sqlitex.Execute(conn,
		"SELECT user_id, quota_bytes, note, added_utc_ms FROM users ORDER BY added_utc_ms",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				raw := make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, raw)
				user, err := identity.UserIDFromBytes(raw)
				if err != nil {
					return fmt.Errorf("corrupt user_id: %w", err)
				}
				records = append(records, UserRecord{
					User:       user,
					QuotaBytes: stmt.ColumnInt64(1),
					Note:       stmt.ColumnText(2),
					Added:      identity.Timestamp(stmt.ColumnInt64(3)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list users: %w", err)
	}
	return records, nil
}
