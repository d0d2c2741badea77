package cache

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mozuku/internal/llm"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// Filecache implements the Cache interface using a SQLite database.
type Filecache struct {
	db  *sql.DB
	now func() time.Time
}

// NewFilecache opens (or creates) the SQLite database at the provided path,
// enables WAL mode and initializes the schema from the embedded file.
func NewFilecache(dbPath string) (*Filecache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}

	// Enable Write-Ahead Logging (WAL)
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Filecache{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if version != 0 {
		log.Infof("dropping response cache with schema version %d", version)
		if _, err := tx.Exec("DROP TABLE IF EXISTS responses"); err != nil {
			return fmt.Errorf("failed to drop old schema: %w", err)
		}
	}
	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return tx.Commit()
}

// withTx is a helper function to execute a function within a transaction.
func (fc *Filecache) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := fc.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func encode(suggestions []llm.Suggestion) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(suggestions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(b []byte) ([]llm.Suggestion, error) {
	var out []llm.Suggestion
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (fc *Filecache) entry(key string) (Entry, bool) {
	var blob []byte
	var created int64
	err := fc.db.QueryRow(`SELECT value, created_at FROM responses WHERE key = ?`, key).Scan(&blob, &created)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Warningf("read cached response %.8s: %v", key, err)
		}
		return Entry{}, false
	}
	suggestions, err := decode(blob)
	if err != nil {
		log.Warningf("decode cached response %.8s: %v", key, err)
		return Entry{}, false
	}
	return Entry{Suggestions: suggestions, Created: time.Unix(created, 0)}, true
}

func (fc *Filecache) Get(key string) ([]llm.Suggestion, bool) {
	e, ok := fc.entry(key)
	return e.Suggestions, ok
}

func (fc *Filecache) Put(key string, suggestions []llm.Suggestion) error {
	blob, err := encode(suggestions)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return fc.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
            INSERT INTO responses (key, value, created_at) VALUES (?, ?, ?)
            ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at
        `, key, blob, fc.now().Unix())
		return err
	})
}

func (fc *Filecache) Prune(maxAge time.Duration) (int64, error) {
	cutoff := fc.now().Add(-maxAge).Unix()
	var n int64
	err := fc.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM responses WHERE created_at < ?`, cutoff)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

func (fc *Filecache) Close() error {
	return fc.db.Close()
}
