// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/signet-project/signet/identity"
	"github.com/signet-project/signet/item"
	"github.com/signet-project/signet/lib/clock"
	"github.com/signet-project/signet/store"
)

// MaxItemBytes is the hard cap on an item payload. Anything larger is
// rejected before a single body byte is read.
const MaxItemBytes = 32 * 1024

// Status is the outcome of a PutItem call. Policy rejections are
// statuses, not errors; an error return means the backend failed.
type Status int

const (
	// StatusCreated: the item was validated and persisted.
	StatusCreated Status = iota

	// StatusAlreadyExists: an item with this exact (user, signature)
	// is already stored. Writes are idempotent: the signature covers
	// the exact bytes, so (user, signature) uniquely determines
	// content.
	StatusAlreadyExists

	// StatusLengthRequired: no Content-Length was declared.
	StatusLengthRequired

	// StatusBadLength: the declared length did not parse as a
	// non-negative integer.
	StatusBadLength

	// StatusTooLarge: the declared length exceeds MaxItemBytes.
	StatusTooLarge

	// StatusUnknownUser: the claimed identity may not publish here.
	StatusUnknownUser

	// StatusBadBody: the body stream failed or ended before the
	// declared length.
	StatusBadBody

	// StatusInvalidSignature: the signature does not verify over the
	// received bytes.
	StatusInvalidSignature

	// StatusInvalidItem: the payload failed to decode, or failed
	// structural validation.
	StatusInvalidItem

	// StatusQuotaDenied: the backend's quota policy refused the
	// write.
	StatusQuotaDenied
)

// String returns the wire-level outcome name.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusAlreadyExists:
		return "already-exists"
	case StatusLengthRequired:
		return "length-required"
	case StatusBadLength:
		return "bad-length"
	case StatusTooLarge:
		return "too-large"
	case StatusUnknownUser:
		return "forbidden-unknown-user"
	case StatusBadBody:
		return "bad-body"
	case StatusInvalidSignature:
		return "invalid-signature"
	case StatusInvalidItem:
		return "invalid-item"
	case StatusQuotaDenied:
		return "quota-denied"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result is the outcome of an ingestion attempt, with a human-readable
// message suitable for the response body.
type Result struct {
	Status  Status
	Message string
}

// PutRequest carries the inputs of one ingestion attempt.
type PutRequest struct {
	// User is the claimed author identity.
	User identity.UserID

	// Signature is the claimed signature over the body bytes.
	Signature identity.Signature

	// ContentLength is the raw declared length ("" when the header
	// was absent). Parsing it is the pipeline's job, not the
	// transport's: presence and well-formedness are checks one and
	// two.
	ContentLength string

	// Body is the payload stream. At most the declared length is
	// read from it.
	Body io.Reader
}

// Pipeline runs the ingestion checks against a backend. Safe for
// concurrent use.
type Pipeline struct {
	backend store.Backend
	clock   clock.Clock
	logger  *slog.Logger
}

// New builds a Pipeline. Backend and clock are required; a nil logger
// discards.
func New(backend store.Backend, clk clock.Clock, logger *slog.Logger) (*Pipeline, error) {
	if backend == nil {
		return nil, fmt.Errorf("ingest: backend is required")
	}
	if clk == nil {
		return nil, fmt.Errorf("ingest: clock is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{backend: backend, clock: clk, logger: logger}, nil
}

// PutItem runs the ordered ingestion checks. A Result with a non-nil
// error means the backend failed and the request should be treated as
// server-side failure; every policy rejection comes back as a Result
// with a nil error.
func (p *Pipeline) PutItem(ctx context.Context, req PutRequest) (Result, error) {
	if req.ContentLength == "" {
		return Result{StatusLengthRequired, "Content-Length header is required."}, nil
	}

	length, err := strconv.ParseInt(req.ContentLength, 10, 64)
	if err != nil || length < 0 {
		return Result{StatusBadLength, fmt.Sprintf("Content-Length %q is not a non-negative integer.", req.ContentLength)}, nil
	}

	if length > MaxItemBytes {
		return Result{StatusTooLarge, fmt.Sprintf("Item must be %d bytes or less.", MaxItemBytes)}, nil
	}

	exists, err := p.backend.UserItemExists(ctx, req.User, req.Signature)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: existence check: %w", err)
	}
	if exists {
		return Result{StatusAlreadyExists, "Item already exists."}, nil
	}

	known, err := p.backend.UserKnown(ctx, req.User)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: known-user check: %w", err)
	}
	if !known {
		return Result{StatusUnknownUser, "Unknown user ID."}, nil
	}

	// Bounded read: exactly the declared length, never more. A short
	// or broken body stream is the client's fault.
	bytes := make([]byte, length)
	if _, err := io.ReadFull(req.Body, bytes); err != nil {
		return Result{StatusBadBody, fmt.Sprintf("Error reading request body: %v.", err)}, nil
	}

	// The sole trust boundary: nothing below runs on bytes that did
	// not verify.
	if !req.Signature.Verifies(req.User, bytes) {
		return Result{StatusInvalidSignature, "Invalid signature."}, nil
	}

	decoded, err := item.Unmarshal(bytes)
	if err != nil {
		return Result{StatusInvalidItem, fmt.Sprintf("Invalid item: %v.", err)}, nil
	}
	if err := decoded.Validate(); err != nil {
		return Result{StatusInvalidItem, fmt.Sprintf("Invalid item: %v.", err)}, nil
	}

	denyReason, err := p.backend.QuotaCheckItem(ctx, req.User, bytes, decoded)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: quota check: %w", err)
	}
	if denyReason != "" {
		return Result{StatusQuotaDenied, denyReason}, nil
	}

	row := &store.ItemRow{
		User:      req.User,
		Signature: req.Signature,
		Timestamp: decoded.Timestamp(),
		Received:  identity.Now(p.clock),
		ItemBytes: bytes,
	}
	if err := p.backend.SaveUserItem(ctx, row, decoded); err != nil {
		return Result{}, fmt.Errorf("ingest: saving item: %w", err)
	}

	p.logger.Info("item stored",
		"user", req.User.String(),
		"signature", req.Signature.String(),
		"bytes", len(bytes),
	)

	return Result{StatusCreated, fmt.Sprintf("OK. Received %d bytes.", len(bytes))}, nil
}
