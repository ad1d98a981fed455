// Package tokenstore persists the session token triple between runs of the
// terminal client in a local SQLite database. The triple is stored as one
// JSON blob, optionally sealed with a key derived from a user passphrase,
// and always written atomically.
package tokenstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/recordbase"
	"github.com/dmitrijs2005/recordbase/internal/cryptox"
	"github.com/dmitrijs2005/recordbase/internal/dbx"
	"github.com/dmitrijs2005/recordbase/internal/shared"
	"github.com/dmitrijs2005/recordbase/internal/tokenstore/migrations"
)

var (
	// ErrNoSession indicates that no tokens are stored.
	ErrNoSession = errors.New("no stored session")

	// ErrPassphraseRequired indicates that the stored tokens are sealed
	// and a passphrase was not supplied.
	ErrPassphraseRequired = errors.New("passphrase required")

	// ErrBadPassphrase indicates that unsealing failed; either the
	// passphrase is wrong or the blob was tampered with.
	ErrBadPassphrase = errors.New("wrong passphrase or corrupted store")
)

const (
	keyTokens = "tokens"
	keySalt   = "salt"
	keyNonce  = "nonce"

	saltSize = 16
)

// Store owns the local session database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database at dsn and applies
// pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored triple. With a non-nil passphrase the blob is
// sealed: a fresh salt is generated, a key derived, and salt/nonce stored
// alongside the ciphertext. All keys are written in a single transaction so
// a crash cannot leave a half-updated session behind.
func (s *Store) Save(ctx context.Context, tokens *recordbase.Tokens, passphrase []byte) error {
	blob, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}

	var salt, nonce []byte
	if passphrase != nil {
		salt = shared.GenerateRandByteArray(saltSize)
		key := cryptox.DeriveKey(passphrase, salt)
		defer shared.WipeByteArray(key)

		blob, nonce, err = cryptox.Seal(blob, key)
		if err != nil {
			return fmt.Errorf("seal tokens: %w", err)
		}
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyTokens, blob); err != nil {
			return err
		}
		if salt != nil {
			if err := repo.Set(ctx, keySalt, salt); err != nil {
				return err
			}
			if err := repo.Set(ctx, keyNonce, nonce); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns the stored triple. Sealed blobs require the passphrase used
// at Save time.
func (s *Store) Load(ctx context.Context, passphrase []byte) (*recordbase.Tokens, error) {
	repo := NewSQLiteRepository(s.db)

	blob, err := repo.Get(ctx, keyTokens)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, ErrNoSession
	}

	salt, err := repo.Get(ctx, keySalt)
	if err != nil {
		return nil, err
	}

	if salt != nil {
		if passphrase == nil {
			return nil, ErrPassphraseRequired
		}
		nonce, err := repo.Get(ctx, keyNonce)
		if err != nil {
			return nil, err
		}

		key := cryptox.DeriveKey(passphrase, salt)
		defer shared.WipeByteArray(key)

		blob, err = cryptox.Open(blob, nonce, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadPassphrase, err)
		}
	}

	var tokens recordbase.Tokens
	if err := json.Unmarshal(blob, &tokens); err != nil {
		return nil, fmt.Errorf("unmarshal tokens: %w", err)
	}
	return &tokens, nil
}

// Clear wipes the stored session. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	return NewSQLiteRepository(s.db).Clear(ctx)
}
