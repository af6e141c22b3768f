// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package feed implements the bounded, filtered page collector shared
// by every paginated read endpoint.
//
// The collector is a single generic component parameterized by a row
// mapper, a display filter, and a sort-key extractor. It makes one
// pass over a backend row iterator, keeps at most one page of mapped
// rows, and derives the continuation cursor from the last item it
// actually included, not the last row it scanned, so that following
// "more" links never skips or duplicates an item.
//
// A mapping failure aborts the whole page: a corrupt stored row must
// surface as an error, not silently vanish from a feed.
package feed
