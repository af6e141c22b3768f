// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// ErrDecode is wrapped by every error returned from the textual and
// byte-level constructors in this package. Callers that need to
// distinguish "the caller sent garbage" from other failures test for
// it with errors.Is.
var ErrDecode = errors.New("malformed encoding")

const (
	// UserIDSize is the length of a raw user ID: an Ed25519 public key.
	UserIDSize = ed25519.PublicKeySize

	// SignatureSize is the length of a raw Ed25519 signature.
	SignatureSize = ed25519.SignatureSize
)

// UserID is a public-key identity. It is a value type; equality is
// byte equality and a UserID is usable as a map key. The zero value is
// not a valid identity.
type UserID struct {
	key [UserIDSize]byte
}

// UserIDFromBytes constructs a UserID from raw public key bytes.
func UserIDFromBytes(raw []byte) (UserID, error) {
	if len(raw) != UserIDSize {
		return UserID{}, fmt.Errorf("identity: user ID must be %d bytes, got %d: %w", UserIDSize, len(raw), ErrDecode)
	}
	var id UserID
	copy(id.key[:], raw)
	return id, nil
}

// ParseUserID decodes the base58 textual form of a user ID.
func ParseUserID(text string) (UserID, error) {
	raw, err := base58.Decode(text)
	if err != nil {
		return UserID{}, fmt.Errorf("identity: user ID %q: %w", text, ErrDecode)
	}
	return UserIDFromBytes(raw)
}

// Bytes returns a copy of the raw public key.
func (u UserID) Bytes() []byte {
	raw := make([]byte, UserIDSize)
	copy(raw, u.key[:])
	return raw
}

// String returns the base58 form of the user ID.
func (u UserID) String() string {
	return base58.Encode(u.key[:])
}

// IsZero reports whether u is the (invalid) zero identity.
func (u UserID) IsZero() bool {
	return u == UserID{}
}

// Signature is a fixed-size Ed25519 signature over an exact byte
// sequence. Value type; equality is byte equality.
type Signature struct {
	sig [SignatureSize]byte
}

// SignatureFromBytes constructs a Signature from raw signature bytes.
func SignatureFromBytes(raw []byte) (Signature, error) {
	if len(raw) != SignatureSize {
		return Signature{}, fmt.Errorf("identity: signature must be %d bytes, got %d: %w", SignatureSize, len(raw), ErrDecode)
	}
	var s Signature
	copy(s.sig[:], raw)
	return s, nil
}

// ParseSignature decodes the base58 textual form of a signature.
func ParseSignature(text string) (Signature, error) {
	raw, err := base58.Decode(text)
	if err != nil {
		return Signature{}, fmt.Errorf("identity: signature %q: %w", text, ErrDecode)
	}
	return SignatureFromBytes(raw)
}

// Bytes returns a copy of the raw signature.
func (s Signature) Bytes() []byte {
	raw := make([]byte, SignatureSize)
	copy(raw, s.sig[:])
	return raw
}

// String returns the base58 form of the signature.
func (s Signature) String() string {
	return base58.Encode(s.sig[:])
}

// Verifies reports whether s is a valid signature of message under
// user's public key. Pure computation: no side effects, no I/O.
func (s Signature) Verifies(user UserID, message []byte) bool {
	return ed25519.Verify(user.key[:], message, s.sig[:])
}
