// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds vault key material and decrypted payloads in
// memory the Go runtime never sees.
//
// [Buffer] allocates with mmap(MAP_ANONYMOUS), locks the pages with
// mlock so they are never written to swap, and marks them
// MADV_DONTDUMP so they are excluded from core dumps. Close zeroes,
// unlocks, and unmaps the region. Because the region is outside the Go
// heap, the garbage collector cannot copy it, and the bytes do not
// outlive Close.
//
// Constructors:
//
//   - [New] -- zero-filled buffer of a given size
//   - [NewFromBytes] -- copies into protected memory, zeroes the source
//   - [Random] -- fills a new buffer from crypto/rand without a heap copy
//
// [Buffer.Clone] hands an independent copy to a caller that will Close
// it on its own schedule (the key manager's cache hands out clones).
// [Buffer.Equal] compares in constant time. After Close any access
// panics, and Close is idempotent.
//
// Depends on golang.org/x/sys/unix. No biovault-internal dependencies.
package secret
