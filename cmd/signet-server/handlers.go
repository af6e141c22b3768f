// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/signet-project/signet/feed"
	"github.com/signet-project/signet/identity"
	"github.com/signet-project/signet/ingest"
	"github.com/signet-project/signet/item"
	"github.com/signet-project/signet/lib/clock"
	"github.com/signet-project/signet/store"
)

// itemContentType is the media type of raw item bytes.
const itemContentType = "application/protobuf"

type server struct {
	backend  store.Backend
	pipeline *ingest.Pipeline
	clock    clock.Clock
	logger   *slog.Logger
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHomepage)
	mux.HandleFunc("PUT /u/{userID}/i/{signature}", s.handlePutItem)
	mux.HandleFunc("GET /u/{userID}/i/{signature}", s.handleGetItem)
	mux.HandleFunc("GET /u/{userID}/items", s.handleUserItems)
	mux.HandleFunc("GET /u/{userID}/feed", s.handleUserFeed)
	mux.HandleFunc("GET /u/{userID}/profile", s.handleUserProfile)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

// displayItem pairs a stored row with its decoded item for rendering.
type displayItem struct {
	row store.ItemDisplayRow
	it  *item.Item
}

// mapDisplayRow decodes a backend row for display. Stored bytes were
// validated at ingestion, so a decode failure here means the stored
// row is corrupt and the whole page fails rather than hiding it.
func mapDisplayRow(row store.ItemDisplayRow) (displayItem, error) {
	decoded, err := item.Unmarshal(row.ItemBytes)
	if err != nil {
		return displayItem{}, fmt.Errorf("decoding stored item %s/%s: %w", row.User, row.Signature, err)
	}
	return displayItem{row: row, it: decoded}, nil
}

func keepDisplayed(d displayItem) bool {
	return item.DisplayByDefault(d.it)
}

func displaySortKey(d displayItem) identity.Timestamp {
	return d.row.Timestamp
}

// pageItem is the JSON shape of one feed entry.
type pageItem struct {
	User             string `json:"user"`
	DisplayName      string `json:"display_name,omitempty"`
	Signature        string `json:"signature"`
	TimestampMsUTC   int64  `json:"timestamp_ms_utc"`
	UTCOffsetMinutes int32  `json:"utc_offset_minutes,omitempty"`
	ReceivedMsUTC    int64  `json:"received_ms_utc"`
	Title            string `json:"title,omitempty"`
	Body             string `json:"body"`
}

// pageResponse is the JSON shape of one feed page.
type pageResponse struct {
	Items      []pageItem `json:"items"`
	HasMore    bool       `json:"has_more"`
	NextBefore int64      `json:"next_before,omitempty"`
	Message    string     `json:"message,omitempty"`
}

func toPageResponse(page feed.Page[displayItem]) pageResponse {
	response := pageResponse{
		Items:   make([]pageItem, 0, len(page.Items)),
		HasMore: page.HasMore,
		Message: page.Message,
	}
	if page.HasMore {
		response.NextBefore = page.NextBefore.UnixMilli()
	}
	for _, entry := range page.Items {
		rendered := pageItem{
			User:             entry.row.User.String(),
			DisplayName:      entry.row.DisplayName,
			Signature:        entry.row.Signature.String(),
			TimestampMsUTC:   entry.it.TimestampMsUTC,
			UTCOffsetMinutes: entry.it.UTCOffsetMinutes,
			ReceivedMsUTC:    entry.row.Received.UnixMilli(),
		}
		// The display filter only passes posts.
		if entry.it.Post != nil {
			rendered.Title = entry.it.Post.Title
			rendered.Body = entry.it.Post.Body
		}
		response.Items = append(response.Items, rendered)
	}
	return response
}

func (s *server) handleHomepage(w http.ResponseWriter, r *http.Request) {
	q, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	rows := s.backend.HomepageItems(r.Context(), q.UpperBound(s.clock))
	s.servePage(w, r, "homepage", q, rows)
}

func (s *server) handleUserFeed(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	q, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	rows := s.backend.UserFeedItems(r.Context(), user, q.UpperBound(s.clock))
	s.servePage(w, r, "user feed", q, rows)
}

func (s *server) handleUserItems(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	q, ok := s.parseQuery(w, r)
	if !ok {
		return
	}

	// The timeline query has no display names: a user's own page does
	// not repeat their name on every entry.
	own := s.backend.UserItems(r.Context(), user, q.UpperBound(s.clock))
	rows := func(yield func(store.ItemDisplayRow, error) bool) {
		for row, err := range own {
			if !yield(store.ItemDisplayRow{ItemRow: row}, err) {
				return
			}
		}
	}
	s.servePage(w, r, "user items", q, rows)
}

// servePage runs the shared collector over a backend row iterator and
// renders the page as JSON.
func (s *server) servePage(w http.ResponseWriter, r *http.Request, operation string, q feed.Query, rows iter.Seq2[store.ItemDisplayRow, error]) {
	page, err := feed.Collect(rows, q, mapDisplayRow, keepDisplayed, displaySortKey)
	if err != nil {
		s.serverError(w, r, operation, err)
		return
	}
	s.writeJSON(w, r, toPageResponse(page))
}

func (s *server) handlePutItem(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	sig, ok := s.pathSignature(w, r)
	if !ok {
		return
	}

	result, err := s.pipeline.PutItem(r.Context(), ingest.PutRequest{
		User:          user,
		Signature:     sig,
		ContentLength: r.Header.Get("Content-Length"),
		Body:          r.Body,
	})
	if err != nil {
		s.serverError(w, r, "put item", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(putStatusCode(result.Status))
	fmt.Fprintln(w, result.Message)
}

// putStatusCode maps pipeline outcomes to HTTP status codes.
func putStatusCode(status ingest.Status) int {
	switch status {
	case ingest.StatusCreated:
		return http.StatusCreated
	case ingest.StatusAlreadyExists:
		return http.StatusAccepted
	case ingest.StatusLengthRequired:
		return http.StatusLengthRequired
	case ingest.StatusTooLarge:
		return http.StatusRequestEntityTooLarge
	case ingest.StatusUnknownUser:
		return http.StatusForbidden
	case ingest.StatusInvalidSignature:
		return http.StatusUnauthorized
	case ingest.StatusQuotaDenied:
		return http.StatusInsufficientStorage
	case ingest.StatusBadLength, ingest.StatusBadBody, ingest.StatusInvalidItem:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	sig, ok := s.pathSignature(w, r)
	if !ok {
		return
	}

	row, err := s.backend.UserItem(r.Context(), user, sig)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "No such item.", http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, r, "get item", err)
		return
	}

	// The exact stored bytes, untransformed. Callers wanting
	// cryptographic assurance independent of this server re-verify
	// the signature themselves.
	w.Header().Set("Content-Type", itemContentType)
	w.Write(row.ItemBytes)
}

func (s *server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pathUser(w, r)
	if !ok {
		return
	}

	row, err := s.backend.UserProfile(r.Context(), user)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "No such user, or no profile.", http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, r, "get profile", err)
		return
	}

	w.Header().Set("Content-Type", itemContentType)
	w.Write(row.ItemBytes)
}

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// pathUser decodes the {userID} path segment, answering 400 on
// malformed input.
func (s *server) pathUser(w http.ResponseWriter, r *http.Request) (identity.UserID, bool) {
	user, err := identity.ParseUserID(r.PathValue("userID"))
	if err != nil {
		http.Error(w, "Bad user ID.", http.StatusBadRequest)
		return identity.UserID{}, false
	}
	return user, true
}

// pathSignature decodes the {signature} path segment, answering 400 on
// malformed input.
func (s *server) pathSignature(w http.ResponseWriter, r *http.Request) (identity.Signature, bool) {
	sig, err := identity.ParseSignature(r.PathValue("signature"))
	if err != nil {
		http.Error(w, "Bad signature.", http.StatusBadRequest)
		return identity.Signature{}, false
	}
	return sig, true
}

// parseQuery reads the pagination parameters, answering 400 on
// malformed input.
func (s *server) parseQuery(w http.ResponseWriter, r *http.Request) (feed.Query, bool) {
	q, err := feed.ParseQuery(r.URL.Query().Get("before"), r.URL.Query().Get("count"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return feed.Query{}, false
	}
	return q, true
}

func (s *server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writing response", "path", r.URL.Path, "error", err)
	}
}

// serverError reports a backend failure. The request fails outright: a
// partial or silently truncated page would hide data loss.
func (s *server) serverError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	s.logger.Error("request failed",
		"operation", operation,
		"path", r.URL.Path,
		"error", err,
	)
	http.Error(w, "Internal server error.", http.StatusInternalServerError)
}
