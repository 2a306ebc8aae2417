// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides biovault's CBOR encoding configuration.
//
// Everything biovault persists is CBOR: the credential plaintext that
// goes into the envelope, the key record, and the per-entry records of
// the on-disk secure store. The encoder uses Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. The same credential always
// encodes to the same bytes, which is what "canonically encoded"
// means throughout the vault.
//
// Two decoders are provided. [Unmarshal] ignores unknown fields for
// forward compatibility and is used for store metadata. [UnmarshalStrict]
// rejects unknown fields and duplicate map keys; it is used for
// payloads recovered from an envelope, where anything unexpected means
// the plaintext is not what the vault wrote.
//
//	data, err := codec.Marshal(record)
//	err = codec.UnmarshalStrict(data, &record)
//
// Types persisted by biovault use `cbor:"N,keyasint"` tags so field
// names never appear in stored bytes.
package codec
