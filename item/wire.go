// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package item

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/signet-project/signet/identity"
)

// Field numbers. See the schema in the package documentation.
const (
	itemFieldTimestamp = 1
	itemFieldUTCOffset = 2
	itemFieldPost      = 3
	itemFieldProfile   = 4

	postFieldTitle = 1
	postFieldBody  = 2

	profileFieldDisplayName = 1
	profileFieldAbout       = 2
	profileFieldFollow      = 3

	followFieldUser        = 1
	followFieldDisplayName = 2

	userRefFieldBytes = 1
)

// Unmarshal decodes an Item from its proto3 wire encoding. Unknown
// fields are skipped; if the payload oneof carries an unrecognized
// variant, the returned item has neither Post nor Profile set. The
// input bytes are not retained.
func Unmarshal(data []byte) (*Item, error) {
	it := &Item{}

	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("item: decoding tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == itemFieldTimestamp && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("item: decoding timestamp_ms_utc: %w", protowire.ParseError(n))
			}
			it.TimestampMsUTC = int64(v)
			b = b[n:]

		case num == itemFieldUTCOffset && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("item: decoding utc_offset_minutes: %w", protowire.ParseError(n))
			}
			it.UTCOffsetMinutes = int32(int64(v))
			b = b[n:]

		case num == itemFieldPost && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("item: decoding post: %w", protowire.ParseError(n))
			}
			post, err := unmarshalPost(raw)
			if err != nil {
				return nil, err
			}
			// Oneof semantics: the last payload field wins.
			it.Post, it.Profile = post, nil
			b = b[n:]

		case num == itemFieldProfile && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("item: decoding profile: %w", protowire.ParseError(n))
			}
			profile, err := unmarshalProfile(raw)
			if err != nil {
				return nil, err
			}
			it.Post, it.Profile = nil, profile
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("item: skipping field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return it, nil
}

func unmarshalPost(data []byte) (*Post, error) {
	post := &Post{}

	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("item: decoding post tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == postFieldTitle && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("item: decoding post title: %w", protowire.ParseError(n))
			}
			post.Title = v
			b = b[n:]

		case num == postFieldBody && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("item: decoding post body: %w", protowire.ParseError(n))
			}
			post.Body = v
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("item: skipping post field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return post, nil
}

func unmarshalProfile(data []byte) (*Profile, error) {
	profile := &Profile{}

	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("item: decoding profile tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == profileFieldDisplayName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("item: decoding display_name: %w", protowire.ParseError(n))
			}
			profile.DisplayName = v
			b = b[n:]

		case num == profileFieldAbout && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("item: decoding about: %w", protowire.ParseError(n))
			}
			profile.About = v
			b = b[n:]

		case num == profileFieldFollow && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("item: decoding follow: %w", protowire.ParseError(n))
			}
			follow, err := unmarshalFollow(raw)
			if err != nil {
				return nil, err
			}
			profile.Follows = append(profile.Follows, follow)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("item: skipping profile field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return profile, nil
}

func unmarshalFollow(data []byte) (Follow, error) {
	var follow Follow

	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Follow{}, fmt.Errorf("item: decoding follow tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == followFieldUser && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Follow{}, fmt.Errorf("item: decoding follow user: %w", protowire.ParseError(n))
			}
			user, err := unmarshalUserRef(raw)
			if err != nil {
				return Follow{}, err
			}
			follow.User = user
			b = b[n:]

		case num == followFieldDisplayName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return Follow{}, fmt.Errorf("item: decoding follow display_name: %w", protowire.ParseError(n))
			}
			follow.DisplayName = v
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Follow{}, fmt.Errorf("item: skipping follow field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return follow, nil
}

func unmarshalUserRef(data []byte) (identity.UserID, error) {
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return identity.UserID{}, fmt.Errorf("item: decoding user ref tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if num == userRefFieldBytes && typ == protowire.BytesType {
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return identity.UserID{}, fmt.Errorf("item: decoding user ref bytes: %w", protowire.ParseError(n))
			}
			user, err := identity.UserIDFromBytes(raw)
			if err != nil {
				return identity.UserID{}, fmt.Errorf("item: follow user ref: %w", err)
			}
			return user, nil
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return identity.UserID{}, fmt.Errorf("item: skipping user ref field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}

	return identity.UserID{}, nil
}

// Marshal encodes an item to its proto3 wire form. The encoding is
// canonical (fields in ascending number order), so the same item
// always produces the same bytes: what a client signs is what every
// verifier sees.
func Marshal(it *Item) []byte {
	var b []byte

	if it.TimestampMsUTC != 0 {
		b = protowire.AppendTag(b, itemFieldTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(it.TimestampMsUTC))
	}
	if it.UTCOffsetMinutes != 0 {
		b = protowire.AppendTag(b, itemFieldUTCOffset, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(it.UTCOffsetMinutes)))
	}

	switch {
	case it.Post != nil:
		b = protowire.AppendTag(b, itemFieldPost, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalPost(it.Post))
	case it.Profile != nil:
		b = protowire.AppendTag(b, itemFieldProfile, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalProfile(it.Profile))
	}

	return b
}

func marshalPost(post *Post) []byte {
	var b []byte
	if post.Title != "" {
		b = protowire.AppendTag(b, postFieldTitle, protowire.BytesType)
		b = protowire.AppendString(b, post.Title)
	}
	if post.Body != "" {
		b = protowire.AppendTag(b, postFieldBody, protowire.BytesType)
		b = protowire.AppendString(b, post.Body)
	}
	return b
}

func marshalProfile(profile *Profile) []byte {
	var b []byte
	if profile.DisplayName != "" {
		b = protowire.AppendTag(b, profileFieldDisplayName, protowire.BytesType)
		b = protowire.AppendString(b, profile.DisplayName)
	}
	if profile.About != "" {
		b = protowire.AppendTag(b, profileFieldAbout, protowire.BytesType)
		b = protowire.AppendString(b, profile.About)
	}
	for _, follow := range profile.Follows {
		b = protowire.AppendTag(b, profileFieldFollow, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalFollow(follow))
	}
	return b
}

func marshalFollow(follow Follow) []byte {
	var b []byte

	var ref []byte
	ref = protowire.AppendTag(ref, userRefFieldBytes, protowire.BytesType)
	ref = protowire.AppendBytes(ref, follow.User.Bytes())

	b = protowire.AppendTag(b, followFieldUser, protowire.BytesType)
	b = protowire.AppendBytes(b, ref)

	if follow.DisplayName != "" {
		b = protowire.AppendTag(b, followFieldDisplayName, protowire.BytesType)
		b = protowire.AppendString(b, follow.DisplayName)
	}
	return b
}
