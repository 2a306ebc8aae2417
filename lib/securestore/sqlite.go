// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package securestore

import (
	"context"
	"errors"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/biovault/lib/codec"
	"github.com/bureau-foundation/biovault/lib/sealed"
	"github.com/bureau-foundation/biovault/lib/secret"
	"github.com/bureau-foundation/biovault/lib/sqlitepool"
	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	namespace       TEXT    NOT NULL,
	key             TEXT    NOT NULL,
	policy          INTEGER NOT NULL,
	enrollment_hash BLOB,
	sealed          BLOB    NOT NULL,
	updated_at      INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
) WITHOUT ROWID;
`

// SQLiteConfig configures an on-disk store.
type SQLiteConfig struct {
	// Path is the database file. Required.
	Path string

	// IdentityPath is the device identity file, created on first use.
	// Defaults to Path + ".identity". Ignored when Identity is set.
	IdentityPath string

	// Identity, if set, is used instead of loading IdentityPath. The
	// store does not close it.
	Identity *sealed.Identity

	// PoolSize is passed to sqlitepool.
	PoolSize int

	Options
}

// SQLite is a Store backed by a SQLite database. Every value is sealed
// to the device identity together with its namespace, key, and policy,
// so rows can neither be read on another device nor moved between
// keys, and an edited policy column is detected.
type SQLite struct {
	pool         *sqlitepool.Pool
	identity     *sealed.Identity
	ownsIdentity bool
	binder       *binder
}

var _ Store = (*SQLite)(nil)

// entryRecord is the stored form of an entry: the plaintext sealed into
// the SQLite sealed column, and the value of a keyring item.
type entryRecord struct {
	Namespace      string `cbor:"1,keyasint"`
	Key            string `cbor:"2,keyasint"`
	Policy         int64  `cbor:"3,keyasint"`
	EnrollmentHash []byte `cbor:"4,keyasint,omitempty"`
	Data           []byte `cbor:"5,keyasint"`
}

// OpenSQLite opens (creating if needed) the database and the device
// identity. The caller must call Close.
func OpenSQLite(config SQLiteConfig) (*SQLite, error) {
	binder, err := newBinder(config.Options)
	if err != nil {
		return nil, err
	}
	if config.Path == "" {
		return nil, fmt.Errorf("securestore: sqlite Path is required")
	}

	identity := config.Identity
	ownsIdentity := false
	if identity == nil {
		identityPath := config.IdentityPath
		if identityPath == "" {
			identityPath = config.Path + ".identity"
		}
		var created bool
		identity, created, err = sealed.LoadOrCreateIdentity(identityPath)
		if err != nil {
			return nil, fmt.Errorf("securestore: %w", err)
		}
		ownsIdentity = true
		if created {
			binder.logger.Info("created device identity",
				"path", identityPath,
				"recipient", identity.Recipient(),
			)
		}
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     config.Path,
		PoolSize: config.PoolSize,
		Logger:   binder.logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		if ownsIdentity {
			identity.Close()
		}
		return nil, fmt.Errorf("securestore: %w", err)
	}

	return &SQLite{
		pool:         pool,
		identity:     identity,
		ownsIdentity: ownsIdentity,
		binder:       binder,
	}, nil
}

// Put implements Store.
func (s *SQLite) Put(ctx context.Context, namespace, key string, data []byte, policy Policy) (err error) {
	const op = "securestore.put"

	hash, err := s.binder.bind(op, namespace, policy)
	if err != nil {
		return err
	}

	plaintext, err := codec.Marshal(entryRecord{
		Namespace:      namespace,
		Key:            key,
		Policy:         policy.encode(),
		EnrollmentHash: hash,
		Data:           data,
	})
	if err != nil {
		return fmt.Errorf("%s: encoding record: %w", op, err)
	}
	sealedValue, err := s.identity.Seal(plaintext)
	secret.Zero(plaintext)
	if err != nil {
		return fmt.Errorf("%s: sealing record: %w", op, err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `
		INSERT INTO entries (namespace, key, policy, enrollment_hash, sealed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			policy = excluded.policy,
			enrollment_hash = excluded.enrollment_hash,
			sealed = excluded.sealed,
			updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{namespace, key, policy.encode(), hash, sealedValue, s.binder.clock.Now().UnixNano()},
		})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, namespace, key, prompt string) ([]byte, error) {
	const op = "securestore.get"

	var (
		found        bool
		columnPolicy int64
		sealedValue  []byte
	)
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT policy, sealed FROM entries WHERE namespace = ? AND key = ?`,
			&sqlitex.ExecOptions{
				Args: []any{namespace, key},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					found = true
					columnPolicy = stmt.ColumnInt64(0)
					sealedValue = make([]byte, stmt.ColumnLen(1))
					stmt.ColumnBytes(1, sealedValue)
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, notFound(op)
	}

	record, err := s.openRecord(namespace, key, columnPolicy, sealedValue)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.KindDecryptionFailed, op, err)
	}

	if err := s.binder.unlock(ctx, op, namespace, decodePolicy(record.Policy), record.EnrollmentHash, prompt); err != nil {
		secret.Zero(record.Data)
		return nil, err
	}
	return record.Data, nil
}

// openRecord unseals a row and checks it belongs where it was found.
func (s *SQLite) openRecord(namespace, key string, columnPolicy int64, sealedValue []byte) (*entryRecord, error) {
	plaintext, err := s.identity.Open(sealedValue)
	if err != nil {
		return nil, fmt.Errorf("unsealing entry: %w", err)
	}
	defer secret.Zero(plaintext)

	var record entryRecord
	if err := codec.UnmarshalStrict(plaintext, &record); err != nil {
		return nil, fmt.Errorf("decoding entry: %w", err)
	}
	if record.Namespace != namespace || record.Key != key {
		secret.Zero(record.Data)
		return nil, errors.New("entry was sealed for a different namespace or key")
	}
	if record.Policy != columnPolicy {
		secret.Zero(record.Data)
		return nil, errors.New("entry policy column does not match sealed policy")
	}
	return &record, nil
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, namespace, key string) (err error) {
	const op = "securestore.delete"

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `DELETE FROM entries WHERE namespace = ? AND key = ?`,
		&sqlitex.ExecOptions{Args: []any{namespace, key}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Exists implements Store.
func (s *SQLite) Exists(ctx context.Context, namespace, key string) (bool, error) {
	var found bool
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT 1 FROM entries WHERE namespace = ? AND key = ?`,
			&sqlitex.ExecOptions{
				Args: []any{namespace, key},
				ResultFunc: func(*sqlite.Stmt) error {
					found = true
					return nil
				},
			})
	})
	if err != nil {
		return false, fmt.Errorf("securestore.exists: %w", err)
	}
	return found, nil
}

// InvalidateOnBiometricChange implements Store.
func (s *SQLite) InvalidateOnBiometricChange() bool {
	return s.binder.enabled
}

// Recipient returns the device identity's public recipient.
func (s *SQLite) Recipient() string {
	return s.identity.Recipient()
}

// Close closes the pool and, if the store loaded it, the identity.
func (s *SQLite) Close() error {
	err := s.pool.Close()
	if s.ownsIdentity {
		if identityErr := s.identity.Close(); identityErr != nil && err == nil {
			err = identityErr
		}
	}
	return err
}
