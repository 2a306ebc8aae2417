// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bureau-foundation/biovault/lib/codec"
	"github.com/bureau-foundation/biovault/lib/secret"
)

// Credential is the session a user unlocks with biometrics.
type Credential struct {
	Username     string    `validate:"required"`
	AccessToken  string    `validate:"required"`
	RefreshToken string    `validate:"required"`
	ExpiresAt    time.Time `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewCredential creates a credential that expires expiresIn after now.
func NewCredential(username, accessToken, refreshToken string, expiresIn time.Duration, now time.Time) Credential {
	return Credential{
		Username:     username,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(expiresIn),
	}
}

// Expired reports whether the access token has expired at now.
func (c Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Validate checks that every field is present.
func (c Credential) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return fmt.Errorf("credential field %s is %s", fieldErrors[0].Field(), fieldErrors[0].Tag())
		}
		return err
	}
	return nil
}

// Equal reports whether two credentials hold the same values.
func (c Credential) Equal(other Credential) bool {
	return c.Username == other.Username &&
		c.AccessToken == other.AccessToken &&
		c.RefreshToken == other.RefreshToken &&
		c.ExpiresAt.Equal(other.ExpiresAt)
}

// String omits both tokens.
func (c Credential) String() string {
	return fmt.Sprintf("credential{username=%s expires_at=%s}", c.Username, c.ExpiresAt.UTC().Format(time.RFC3339))
}

// LogValue implements slog.LogValuer. Tokens are never logged.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.Time("expires_at", c.ExpiresAt),
	)
}

// credentialRecord is the plaintext sealed into the envelope. The
// expiry is Unix seconds plus a nanosecond remainder, which has no
// time zone and covers every year time.Time can represent.
type credentialRecord struct {
	Username       string `cbor:"1,keyasint"`
	AccessToken    string `cbor:"2,keyasint"`
	RefreshToken   string `cbor:"3,keyasint"`
	ExpiresAt      int64  `cbor:"4,keyasint"`
	ExpiresAtNanos uint32 `cbor:"5,keyasint,omitempty"`
}

// encodeCredential returns the canonical encoding. Identical
// credentials encode to identical bytes. The caller zeroes the result.
func encodeCredential(c Credential) ([]byte, error) {
	return codec.Marshal(credentialRecord{
		Username:       c.Username,
		AccessToken:    c.AccessToken,
		RefreshToken:   c.RefreshToken,
		ExpiresAt:      c.ExpiresAt.Unix(),
		ExpiresAtNanos: uint32(c.ExpiresAt.Nanosecond()),
	})
}

// decodeCredential decodes and then zeroes plaintext.
func decodeCredential(plaintext []byte) (Credential, error) {
	defer secret.Zero(plaintext)

	var record credentialRecord
	if err := codec.UnmarshalStrict(plaintext, &record); err != nil {
		return Credential{}, err
	}
	if record.ExpiresAtNanos >= uint32(time.Second) {
		return Credential{}, fmt.Errorf("credential expiry nanoseconds %d out of range", record.ExpiresAtNanos)
	}
	credential := Credential{
		Username:     record.Username,
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    time.Unix(record.ExpiresAt, int64(record.ExpiresAtNanos)).UTC(),
	}
	if err := credential.Validate(); err != nil {
		return Credential{}, err
	}
	return credential, nil
}
