// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitestore

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/signet-project/signet/identity"
	"github.com/signet-project/signet/item"
	"github.com/signet-project/signet/lib/clock"
	"github.com/signet-project/signet/store"
)

func openTestStore(t *testing.T) (*Store, *clock.FakeClock) {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	s, err := Open(Config{
		Path:  filepath.Join(t.TempDir(), "test.db"),
		Clock: clk,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s, clk
}

func testUser(t *testing.T, fill byte) identity.UserID {
	t.Helper()
	user, err := identity.UserIDFromBytes(bytes.Repeat([]byte{fill}, identity.UserIDSize))
	if err != nil {
		t.Fatalf("UserIDFromBytes: %v", err)
	}
	return user
}

func testSig(t *testing.T, fill byte) identity.Signature {
	t.Helper()
	sig, err := identity.SignatureFromBytes(bytes.Repeat([]byte{fill}, identity.SignatureSize))
	if err != nil {
		t.Fatalf("SignatureFromBytes: %v", err)
	}
	return sig
}

// savePost stores a post row for user with the given timestamp. The
// signature fill byte must be unique per item within a test.
func savePost(t *testing.T, s *Store, user identity.UserID, sigFill byte, ts int64, body string) {
	t.Helper()
	it := &item.Item{TimestampMsUTC: ts, Post: &item.Post{Body: body}}
	row := &store.ItemRow{
		User:      user,
		Signature: testSig(t, sigFill),
		Timestamp: identity.Timestamp(ts),
		Received:  identity.Now(s.clock),
		ItemBytes: item.Marshal(it),
	}
	if err := s.SaveUserItem(context.Background(), row, it); err != nil {
		t.Fatalf("SaveUserItem: %v", err)
	}
}

// saveProfile stores a profile row for user.
func saveProfile(t *testing.T, s *Store, user identity.UserID, sigFill byte, ts int64, profile *item.Profile) {
	t.Helper()
	it := &item.Item{TimestampMsUTC: ts, Profile: profile}
	row := &store.ItemRow{
		User:      user,
		Signature: testSig(t, sigFill),
		Timestamp: identity.Timestamp(ts),
		Received:  identity.Now(s.clock),
		ItemBytes: item.Marshal(it),
	}
	if err := s.SaveUserItem(context.Background(), row, it); err != nil {
		t.Fatalf("SaveUserItem: %v", err)
	}
}

func collectDisplayRows(t *testing.T, rows func(func(store.ItemDisplayRow, error) bool)) []store.ItemDisplayRow {
	t.Helper()
	var out []store.ItemDisplayRow
	for row, err := range rows {
		if err != nil {
			t.Fatalf("iterating rows: %v", err)
		}
		out = append(out, row)
	}
	return out
}

func TestSaveAndLookupItem(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	alice := testUser(t, 0xa1)
	sig := testSig(t, 0x01)

	exists, err := s.UserItemExists(ctx, alice, sig)
	if err != nil {
		t.Fatalf("UserItemExists: %v", err)
	}
	if exists {
		t.Error("UserItemExists = true before save")
	}

	savePost(t, s, alice, 0x01, 1000, "hello")

	exists, err = s.UserItemExists(ctx, alice, sig)
	if err != nil {
		t.Fatalf("UserItemExists: %v", err)
	}
	if !exists {
		t.Error("UserItemExists = false after save")
	}

	row, err := s.UserItem(ctx, alice, sig)
	if err != nil {
		t.Fatalf("UserItem: %v", err)
	}
	if row.User != alice || row.Signature != sig {
		t.Errorf("UserItem identity = %v/%v, want %v/%v", row.User, row.Signature, alice, sig)
	}
	if row.Timestamp.UnixMilli() != 1000 {
		t.Errorf("Timestamp = %d, want 1000", row.Timestamp.UnixMilli())
	}

	decoded, err := item.Unmarshal(row.ItemBytes)
	if err != nil {
		t.Fatalf("Unmarshal stored bytes: %v", err)
	}
	if decoded.Post == nil || decoded.Post.Body != "hello" {
		t.Errorf("stored item = %+v, want the saved post", decoded)
	}
}

func TestUserItemNotFound(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.UserItem(context.Background(), testUser(t, 0x01), testSig(t, 0x01))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UserItem = %v, want ErrNotFound", err)
	}
}

func TestUserRegistry(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	alice := testUser(t, 0xa1)

	known, err := s.UserKnown(ctx, alice)
	if err != nil {
		t.Fatalf("UserKnown: %v", err)
	}
	if known {
		t.Error("UserKnown = true before registration")
	}

	if err := s.AddUser(ctx, alice, 1000, "alice"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	known, err = s.UserKnown(ctx, alice)
	if err != nil {
		t.Fatalf("UserKnown: %v", err)
	}
	if !known {
		t.Error("UserKnown = false after registration")
	}

	records, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(records) != 1 || records[0].User != alice || records[0].QuotaBytes != 1000 || records[0].Note != "alice" {
		t.Errorf("ListUsers = %+v, want one record for alice", records)
	}

	if err := s.RemoveUser(ctx, alice); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	known, err = s.UserKnown(ctx, alice)
	if err != nil {
		t.Fatalf("UserKnown: %v", err)
	}
	if known {
		t.Error("UserKnown = true after removal")
	}
}

func TestQuotaCheckItem(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	alice := testUser(t, 0xa1)

	// Unregistered users are denied even though the pipeline normally
	// catches them earlier.
	deny, err := s.QuotaCheckItem(ctx, alice, []byte("x"), &item.Item{})
	if err != nil {
		t.Fatalf("QuotaCheckItem: %v", err)
	}
	if deny == "" {
		t.Error("unregistered user passed the quota check")
	}

	// Zero quota means unlimited.
	if err := s.AddUser(ctx, alice, 0, ""); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	deny, err = s.QuotaCheckItem(ctx, alice, bytes.Repeat([]byte("x"), 10_000), &item.Item{})
	if err != nil {
		t.Fatalf("QuotaCheckItem: %v", err)
	}
	if deny != "" {
		t.Errorf("unlimited quota denied: %q", deny)
	}

	// A tight quota fills up as items accumulate.
	savePost(t, s, alice, 0x01, 1000, "first post")
	stored, err := s.UserItem(ctx, alice, testSig(t, 0x01))
	if err != nil {
		t.Fatalf("UserItem: %v", err)
	}
	used := int64(len(stored.ItemBytes))

	if err := s.AddUser(ctx, alice, used+5, ""); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	deny, err = s.QuotaCheckItem(ctx, alice, []byte("12345"), &item.Item{})
	if err != nil {
		t.Fatalf("QuotaCheckItem: %v", err)
	}
	if deny != "" {
		t.Errorf("item at the quota boundary denied: %q", deny)
	}

	deny, err = s.QuotaCheckItem(ctx, alice, []byte("123456"), &item.Item{})
	if err != nil {
		t.Fatalf("QuotaCheckItem: %v", err)
	}
	if deny == "" {
		t.Error("item past the quota boundary allowed")
	}
}

func TestHomepageItemsOrderAndBound(t *testing.T) {
	s, _ := openTestStore(t)
	alice := testUser(t, 0xa1)
	bob := testUser(t, 0xb2)

	savePost(t, s, alice, 0x01, 100, "oldest")
	savePost(t, s, bob, 0x02, 200, "middle")
	savePost(t, s, alice, 0x03, 300, "newest")

	rows := collectDisplayRows(t, s.HomepageItems(context.Background(), identity.Timestamp(1000)))
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	for i, want := range []int64{300, 200, 100} {
		if rows[i].Timestamp.UnixMilli() != want {
			t.Errorf("rows[%d].Timestamp = %d, want %d", i, rows[i].Timestamp.UnixMilli(), want)
		}
	}

	// The bound is exclusive: a cursor at 200 yields only older items.
	rows = collectDisplayRows(t, s.HomepageItems(context.Background(), identity.Timestamp(200)))
	if len(rows) != 1 || rows[0].Timestamp.UnixMilli() != 100 {
		t.Errorf("bounded rows = %+v, want only the item at 100", rows)
	}
}

func TestHomepageItemsTimestampTie(t *testing.T) {
	s, _ := openTestStore(t)
	alice := testUser(t, 0xa1)

	// Two items at the same timestamp: the larger signature sorts
	// first, and the order is stable across queries.
	savePost(t, s, alice, 0x01, 500, "tie low")
	savePost(t, s, alice, 0x09, 500, "tie high")

	rows := collectDisplayRows(t, s.HomepageItems(context.Background(), identity.Timestamp(1000)))
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].Signature != testSig(t, 0x09) || rows[1].Signature != testSig(t, 0x01) {
		t.Errorf("tie order = %v, %v; want signature descending", rows[0].Signature, rows[1].Signature)
	}
}

func TestHomepageItemsEarlyStop(t *testing.T) {
	s, _ := openTestStore(t)
	alice := testUser(t, 0xa1)
	for i := range 10 {
		savePost(t, s, alice, byte(i+1), int64((i+1)*100), "post")
	}

	// Breaking out of the loop early must not error or leak.
	var seen int
	for _, err := range s.HomepageItems(context.Background(), identity.Timestamp(10_000)) {
		if err != nil {
			t.Fatalf("iterating: %v", err)
		}
		seen++
		if seen == 3 {
			break
		}
	}
	if seen != 3 {
		t.Errorf("seen = %d, want 3", seen)
	}
}

func TestUserItemsOnlyTheirOwn(t *testing.T) {
	s, _ := openTestStore(t)
	alice := testUser(t, 0xa1)
	bob := testUser(t, 0xb2)

	savePost(t, s, alice, 0x01, 100, "alice one")
	savePost(t, s, bob, 0x02, 200, "bob one")
	savePost(t, s, alice, 0x03, 300, "alice two")

	var timestamps []int64
	for row, err := range s.UserItems(context.Background(), alice, identity.Timestamp(1000)) {
		if err != nil {
			t.Fatalf("iterating: %v", err)
		}
		if row.User != alice {
			t.Errorf("row author = %v, want alice", row.User)
		}
		timestamps = append(timestamps, row.Timestamp.UnixMilli())
	}
	if len(timestamps) != 2 || timestamps[0] != 300 || timestamps[1] != 100 {
		t.Errorf("timestamps = %v, want [300 100]", timestamps)
	}
}

func TestUserFeedItemsFollowsAndSelf(t *testing.T) {
	s, _ := openTestStore(t)
	alice := testUser(t, 0xa1)
	bob := testUser(t, 0xb2)
	carol := testUser(t, 0xc3)

	// Alice follows Bob but not Carol.
	saveProfile(t, s, alice, 0x10, 50, &item.Profile{
		DisplayName: "Alice",
		Follows:     []item.Follow{{User: bob, DisplayName: "Bob"}},
	})

	savePost(t, s, alice, 0x01, 100, "by alice")
	savePost(t, s, bob, 0x02, 200, "by bob")
	savePost(t, s, carol, 0x03, 300, "by carol")

	rows := collectDisplayRows(t, s.UserFeedItems(context.Background(), alice, identity.Timestamp(1000)))
	var authors []identity.UserID
	for _, row := range rows {
		authors = append(authors, row.User)
	}
	if len(authors) != 3 {
		t.Fatalf("authors = %v, want alice's profile, bob's post, alice's post", authors)
	}
	// Newest first: bob (200), alice's post (100), alice's profile (50).
	if authors[0] != bob || authors[1] != alice || authors[2] != alice {
		t.Errorf("feed authors = %v, want [bob alice alice]", authors)
	}
	for _, row := range rows {
		if row.User == carol {
			t.Error("feed includes an unfollowed author")
		}
	}
}

func TestFeedCarriesDisplayNames(t *testing.T) {
	s, _ := openTestStore(t)
	alice := testUser(t, 0xa1)

	saveProfile(t, s, alice, 0x10, 50, &item.Profile{DisplayName: "Alice"})
	savePost(t, s, alice, 0x01, 100, "named post")

	rows := collectDisplayRows(t, s.HomepageItems(context.Background(), identity.Timestamp(1000)))
	for _, row := range rows {
		if row.DisplayName != "Alice" {
			t.Errorf("DisplayName = %q, want %q", row.DisplayName, "Alice")
		}
	}
}

func TestProfileNewerWins(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	alice := testUser(t, 0xa1)
	bob := testUser(t, 0xb2)

	saveProfile(t, s, alice, 0x01, 200, &item.Profile{DisplayName: "New Name"})

	// An older profile arriving later (history re-publish) must not
	// clobber the newer one.
	saveProfile(t, s, alice, 0x02, 100, &item.Profile{
		DisplayName: "Old Name",
		Follows:     []item.Follow{{User: bob}},
	})

	row, err := s.UserProfile(ctx, alice)
	if err != nil {
		t.Fatalf("UserProfile: %v", err)
	}
	decoded, err := item.Unmarshal(row.ItemBytes)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Profile == nil || decoded.Profile.DisplayName != "New Name" {
		t.Errorf("latest profile = %+v, want the one with timestamp 200", decoded.Profile)
	}

	// The materialized follow list tracks the newest profile too: the
	// old profile's follow of bob must not be live.
	savePost(t, s, bob, 0x03, 300, "bob post")
	rows := collectDisplayRows(t, s.UserFeedItems(ctx, alice, identity.Timestamp(1000)))
	for _, r := range rows {
		if r.User == bob {
			t.Error("feed follows a user only the stale profile followed")
		}
	}
}

func TestProfileReplacesFollows(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	alice := testUser(t, 0xa1)
	bob := testUser(t, 0xb2)
	carol := testUser(t, 0xc3)

	saveProfile(t, s, alice, 0x01, 100, &item.Profile{
		Follows: []item.Follow{{User: bob}},
	})
	saveProfile(t, s, alice, 0x02, 200, &item.Profile{
		Follows: []item.Follow{{User: carol}},
	})

	savePost(t, s, bob, 0x03, 300, "bob post")
	savePost(t, s, carol, 0x04, 400, "carol post")

	rows := collectDisplayRows(t, s.UserFeedItems(ctx, alice, identity.Timestamp(1000)))
	var sawBobPost, sawCarolPost bool
	for _, r := range rows {
		if r.User == bob {
			sawBobPost = true
		}
		if r.User == carol {
			sawCarolPost = true
		}
	}
	if sawBobPost {
		t.Error("feed still follows a user dropped by the newer profile")
	}
	if !sawCarolPost {
		t.Error("feed missing the newly followed user's post")
	}
}

func TestUserProfileNotFound(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.UserProfile(context.Background(), testUser(t, 0x01))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UserProfile = %v, want ErrNotFound", err)
	}
}

func TestDuplicateSaveFails(t *testing.T) {
	s, _ := openTestStore(t)
	alice := testUser(t, 0xa1)
	savePost(t, s, alice, 0x01, 100, "once")

	it := &item.Item{TimestampMsUTC: 100, Post: &item.Post{Body: "once"}}
	row := &store.ItemRow{
		User:      alice,
		Signature: testSig(t, 0x01),
		Timestamp: identity.Timestamp(100),
		Received:  identity.Now(s.clock),
		ItemBytes: item.Marshal(it),
	}
	if err := s.SaveUserItem(context.Background(), row, it); err == nil {
		t.Error("SaveUserItem accepted a duplicate (user, signature)")
	}
}
