// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool behind the
// on-disk credential store.
//
// It wraps zombiezen.com/go/sqlite with defaults for a small database
// that holds secrets. Callers [Pool.Take] a connection, perform work,
// and [Pool.Put] it back, or use [Pool.With]. Connections are NOT safe
// for concurrent use; each goroutine must hold its own connection for
// the duration of its work.
//
// The database file is created with mode 0600 before SQLite opens it.
//
// # Pragmas
//
// Every connection in the pool is initialized with these pragmas:
//
//   - journal_mode=WAL: readers do not block the single writer.
//   - synchronous=FULL: a committed key or credential survives power
//     loss. The store is the only copy of the encryption key.
//   - busy_timeout=5000: wait up to 5 seconds for a write lock when
//     another process holds it.
//   - secure_delete=ON: deleted rows are overwritten with zeros, so a
//     cleared key does not linger in free pages.
//   - foreign_keys=OFF: the schema is a single table.
//   - temp_store=MEMORY: temporary tables and indexes stay off disk.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/home/alice/.local/share/biovault/vault.db",
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
// The package is thin on purpose: it applies the pragmas and exposes
// the zombiezen types directly. Stores write SQL, use sqlitex.Execute
// for cached statements, and wrap writes in
// sqlitex.ImmediateTransaction.
package sqlitepool
