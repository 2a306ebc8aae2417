// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vaulterr

import "errors"

// Category groups kinds by the layer that produced them, so callers
// can decide between "offer a different login path" (capability),
// "ask the user again" (auth), and "give up and re-login" (store,
// crypto) without enumerating every kind.
type Category string

const (
	CategoryCapability Category = "capability"
	CategoryAuth       Category = "auth"
	CategoryStore      Category = "store"
	CategoryCrypto     Category = "crypto"
)

// Kind identifies one failure mode. The string values are stable and
// appear in structured logs and CLI JSON output.
type Kind string

const (
	KindUnavailable Kind = "unavailable"
	KindNotEnrolled Kind = "not_enrolled"

	KindLockedOut           Kind = "locked_out"
	KindUserCanceled        Kind = "user_canceled"
	KindUserFallback        Kind = "user_fallback"
	KindSystemCanceled      Kind = "system_canceled"
	KindPasscodeNotSet      Kind = "passcode_not_set"
	KindBiometryInvalidated Kind = "biometry_invalidated"
	KindUnknown             Kind = "unknown"

	KindStoreFailed    Kind = "store_failed"
	KindRetrieveFailed Kind = "retrieve_failed"
	KindDeleteFailed   Kind = "delete_failed"
	KindNotFound       Kind = "not_found"

	KindEncryptionFailed Kind = "encryption_failed"
	KindDecryptionFailed Kind = "decryption_failed"
)

// kindInfo holds the fixed properties of each kind.
var kindInfo = map[Kind]struct {
	category Category
	message  string
}{
	KindUnavailable: {CategoryCapability, "biometric authentication is not available on this device"},
	KindNotEnrolled: {CategoryCapability, "no biometric identity is enrolled"},

	KindLockedOut:           {CategoryAuth, "biometric authentication is locked after too many failed attempts"},
	KindUserCanceled:        {CategoryAuth, "biometric authentication was canceled by the user"},
	KindUserFallback:        {CategoryAuth, "user chose the fallback login path"},
	KindSystemCanceled:      {CategoryAuth, "biometric authentication was interrupted by the system"},
	KindPasscodeNotSet:      {CategoryAuth, "device passcode is not set"},
	KindBiometryInvalidated: {CategoryAuth, "enrolled biometric identities changed; biometric login must be re-enabled"},
	KindUnknown:             {CategoryAuth, "biometric authentication failed"},

	KindStoreFailed:    {CategoryStore, "storing credential failed"},
	KindRetrieveFailed: {CategoryStore, "retrieving credential failed"},
	KindDeleteFailed:   {CategoryStore, "deleting credential failed"},
	KindNotFound:       {CategoryStore, "no stored credential"},

	KindEncryptionFailed: {CategoryCrypto, "encrypting credential failed"},
	KindDecryptionFailed: {CategoryCrypto, "decrypting credential failed"},
}

// Category returns the category of k. Unrecognized kinds report
// CategoryAuth with KindUnknown semantics.
func (k Kind) Category() Category {
	if info, ok := kindInfo[k]; ok {
		return info.category
	}
	return CategoryAuth
}

// Message returns the fixed human-readable description of k.
func (k Kind) Message() string {
	if info, ok := kindInfo[k]; ok {
		return info.message
	}
	return string(k)
}

// Error is a categorized biovault failure. Use [New] or [Wrap] rather
// than constructing Error directly.
type Error struct {
	// Kind identifies the failure mode.
	Kind Kind

	// Op names the operation that failed (e.g., "vault.retrieve").
	// Empty for the exported sentinels.
	Op string

	// Err is the underlying cause, if any.
	Err error
}

// Error formats as "op: kind message: cause", omitting empty parts.
func (e *Error) Error() string {
	message := e.Kind.Message()
	if e.Op != "" {
		message = e.Op + ": " + message
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

// Unwrap returns the underlying cause so errors.Is and errors.As walk
// through the wrapper.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. This makes
// the exported sentinels match any wrapped error of their kind,
// regardless of Op or cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// New creates an Error of the given kind with no cause.
func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// Wrap creates an Error of the given kind wrapping cause. If cause is
// already an *Error it is still wrapped, so the outer kind is what
// KindOf reports.
func Wrap(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// the empty Kind if err contains none.
func KindOf(err error) Kind {
	var vaultError *Error
	if errors.As(err, &vaultError) {
		return vaultError.Kind
	}
	return ""
}

// CategoryOf returns the category of err's outermost *Error, or the
// empty Category if err contains none.
func CategoryOf(err error) Category {
	kind := KindOf(err)
	if kind == "" {
		return ""
	}
	return kind.Category()
}

// Sentinels for errors.Is comparisons. They carry no Op or cause and
// must not be returned directly.
var (
	ErrUnavailable = New(KindUnavailable, "")
	ErrNotEnrolled = New(KindNotEnrolled, "")

	ErrLockedOut           = New(KindLockedOut, "")
	ErrUserCanceled        = New(KindUserCanceled, "")
	ErrUserFallback        = New(KindUserFallback, "")
	ErrSystemCanceled      = New(KindSystemCanceled, "")
	ErrPasscodeNotSet      = New(KindPasscodeNotSet, "")
	ErrBiometryInvalidated = New(KindBiometryInvalidated, "")
	ErrUnknown             = New(KindUnknown, "")

	ErrStoreFailed    = New(KindStoreFailed, "")
	ErrRetrieveFailed = New(KindRetrieveFailed, "")
	ErrDeleteFailed   = New(KindDeleteFailed, "")
	ErrNotFound       = New(KindNotFound, "")

	ErrEncryptionFailed = New(KindEncryptionFailed, "")
	ErrDecryptionFailed = New(KindDecryptionFailed, "")
)
