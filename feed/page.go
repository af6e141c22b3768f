// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package feed

import (
	"fmt"
	"iter"
	"strconv"

	"github.com/signet-project/signet/identity"
	"github.com/signet-project/signet/lib/clock"
)

// Page size policy: a caller-supplied count is clamped to
// [MinCount, MaxCount]; DefaultCount applies when no count is given.
const (
	MinCount     = 1
	MaxCount     = 100
	DefaultCount = 20
)

// Query holds the pagination parameters of a read request. The zero
// value means "first page, default size".
type Query struct {
	// Before is the exclusive upper bound on item timestamps. Nil
	// means "now".
	Before *identity.Timestamp

	// Count is the requested page size. Nil means DefaultCount; any
	// supplied value is clamped to [MinCount, MaxCount].
	Count *int
}

// ParseQuery builds a Query from the raw "before" and "count"
// parameters of a request. Empty strings mean "absent". Unparseable
// values are rejected rather than defaulted, so a typo in a cursor
// does not silently restart the feed from the top.
func ParseQuery(before, count string) (Query, error) {
	var q Query

	if before != "" {
		ms, err := strconv.ParseInt(before, 10, 64)
		if err != nil {
			return Query{}, fmt.Errorf("feed: before %q is not a timestamp", before)
		}
		t := identity.Timestamp(ms)
		q.Before = &t
	}

	if count != "" {
		n, err := strconv.Atoi(count)
		if err != nil {
			return Query{}, fmt.Errorf("feed: count %q is not an integer", count)
		}
		q.Count = &n
	}

	return q, nil
}

// Limit returns the effective page size.
func (q Query) Limit() int {
	if q.Count == nil {
		return DefaultCount
	}
	limit := *q.Count
	if limit < MinCount {
		limit = MinCount
	}
	if limit > MaxCount {
		limit = MaxCount
	}
	return limit
}

// UpperBound returns the exclusive timestamp bound for the page,
// reading the clock when no cursor was supplied.
func (q Query) UpperBound(clk clock.Clock) identity.Timestamp {
	if q.Before != nil {
		return *q.Before
	}
	return identity.Now(clk)
}

// Page is one bounded, ordered, filtered result set plus its
// continuation state.
type Page[T any] struct {
	// Items holds at most Query.Limit() entries, newest first.
	Items []T

	// HasMore reports that at least one filtered-in row exists beyond
	// the page boundary.
	HasMore bool

	// NextBefore is the cursor for the next page: the timestamp of
	// the last item included in this page. Meaningful only when
	// HasMore is true.
	NextBefore identity.Timestamp

	// Message explains an empty page: it distinguishes "this feed is
	// empty" from "you have reached the end". Empty for non-empty
	// pages.
	Message string
}

// Collect drives one page request. It pulls rows from the backend
// iterator (newest first), maps each row to the display type, applies
// the filter, and stops as soon as the page is full and one more
// filtered-in row is known to exist. Filtered-out rows do not count
// against the page size and are not retained.
//
// A row error or mapping failure fails the whole page.
func Collect[In, T any](
	rows iter.Seq2[In, error],
	q Query,
	mapRow func(In) (T, error),
	keep func(T) bool,
	sortKey func(T) identity.Timestamp,
) (Page[T], error) {
	limit := q.Limit()
	page := Page[T]{Items: make([]T, 0, limit)}

	for in, err := range rows {
		if err != nil {
			return Page[T]{}, err
		}

		mapped, err := mapRow(in)
		if err != nil {
			return Page[T]{}, err
		}

		if !keep(mapped) {
			continue
		}

		if len(page.Items) >= limit {
			page.HasMore = true
			break
		}

		page.Items = append(page.Items, mapped)
	}

	if page.HasMore {
		page.NextBefore = sortKey(page.Items[len(page.Items)-1])
	}

	if len(page.Items) == 0 {
		if q.Before == nil {
			page.Message = "Nothing to display."
		} else {
			page.Message = "No more items to display."
		}
	}

	return page, nil
}
