// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/signet-project/signet/lib/clock"
)

// testKey generates a fresh Ed25519 keypair and returns the UserID for
// its public half.
func testKey(t *testing.T) (UserID, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	user, err := UserIDFromBytes(pub)
	if err != nil {
		t.Fatalf("UserIDFromBytes: %v", err)
	}
	return user, priv
}

func TestUserIDRoundTrip(t *testing.T) {
	user, _ := testKey(t)

	parsed, err := ParseUserID(user.String())
	if err != nil {
		t.Fatalf("ParseUserID(%q): %v", user.String(), err)
	}
	if parsed != user {
		t.Errorf("round trip: got %v, want %v", parsed, user)
	}
}

func TestUserIDBytesCopies(t *testing.T) {
	user, _ := testKey(t)

	raw := user.Bytes()
	raw[0] ^= 0xff
	if again := user.Bytes(); again[0] == raw[0] {
		t.Error("Bytes returned a view into the UserID, want a copy")
	}
}

func TestParseUserIDRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"bad alphabet": "0OIl+/=",
		"too short":    "3vQB7B6MdGHY",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseUserID(text)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("ParseUserID(%q) = %v, want ErrDecode", text, err)
			}
		})
	}
}

func TestUserIDFromBytesRejectsWrongLength(t *testing.T) {
	_, err := UserIDFromBytes(make([]byte, UserIDSize-1))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("short input: got %v, want ErrDecode", err)
	}
	_, err = UserIDFromBytes(make([]byte, UserIDSize+1))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("long input: got %v, want ErrDecode", err)
	}
}

func TestUserIDIsZero(t *testing.T) {
	if !(UserID{}).IsZero() {
		t.Error("zero UserID: IsZero() = false, want true")
	}
	user, _ := testKey(t)
	if user.IsZero() {
		t.Error("real UserID: IsZero() = true, want false")
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	_, priv := testKey(t)
	raw := ed25519.Sign(priv, []byte("hello"))

	sig, err := SignatureFromBytes(raw)
	if err != nil {
		t.Fatalf("SignatureFromBytes: %v", err)
	}
	parsed, err := ParseSignature(sig.String())
	if err != nil {
		t.Fatalf("ParseSignature(%q): %v", sig.String(), err)
	}
	if parsed != sig {
		t.Errorf("round trip: got %v, want %v", parsed, sig)
	}
}

func TestParseSignatureRejectsBadInput(t *testing.T) {
	if _, err := ParseSignature("not base58 0OIl"); !errors.Is(err, ErrDecode) {
		t.Errorf("bad alphabet: got %v, want ErrDecode", err)
	}
	if _, err := SignatureFromBytes(make([]byte, SignatureSize-1)); !errors.Is(err, ErrDecode) {
		t.Errorf("short input: got %v, want ErrDecode", err)
	}
}

func TestSignatureVerifies(t *testing.T) {
	user, priv := testKey(t)
	message := []byte("the exact bytes that were signed")

	sig, err := SignatureFromBytes(ed25519.Sign(priv, message))
	if err != nil {
		t.Fatalf("SignatureFromBytes: %v", err)
	}

	if !sig.Verifies(user, message) {
		t.Error("Verifies = false for a valid signature")
	}

	tampered := append([]byte(nil), message...)
	tampered[0] ^= 1
	if sig.Verifies(user, tampered) {
		t.Error("Verifies = true for tampered message")
	}

	other, _ := testKey(t)
	if sig.Verifies(other, message) {
		t.Error("Verifies = true under the wrong key")
	}
}

func TestTimestampNow(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	clk := clock.Fake(at)

	got := Now(clk)
	if got.UnixMilli() != at.UnixMilli() {
		t.Errorf("Now = %d, want %d", got.UnixMilli(), at.UnixMilli())
	}
	if !got.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", got.Time(), at)
	}
}

func TestTimestampBefore(t *testing.T) {
	if !Timestamp(1).Before(2) {
		t.Error("1.Before(2) = false, want true")
	}
	if Timestamp(2).Before(2) {
		t.Error("2.Before(2) = true, want false")
	}
}
