package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements EmbeddingStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		model_key TEXT NOT NULL,
		text TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (model_key, text)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// GetEmbeddings returns stored vectors for the given texts.
func (s *SQLiteStore) GetEmbeddings(ctx context.Context, modelKey string, texts []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	stmt, err := s.db.PrepareContext(ctx,
		`SELECT dimensions, vector FROM embeddings WHERE model_key = ? AND text = ?`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, text := range texts {
		var dims int
		var blob []byte
		err := stmt.QueryRowContext(ctx, modelKey, text).Scan(&dims, &blob)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(blob) != dims*4 {
			return nil, fmt.Errorf("corrupt embedding for %q: %d bytes for %d dimensions", text, len(blob), dims)
		}
		out[text] = bytesToFloat32Slice(blob)
	}
	return out, nil
}

// PutEmbeddings stores vectors in a single transaction.
func (s *SQLiteStore) PutEmbeddings(ctx context.Context, modelKey string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("texts and vectors length mismatch")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO embeddings (model_key, text, dimensions, vector, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i, text := range texts {
		if _, err := stmt.ExecContext(ctx, modelKey, text, len(vectors[i]), float32SliceToBytes(vectors[i]), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CountEmbeddings returns the number of vectors stored for modelKey.
func (s *SQLiteStore) CountEmbeddings(ctx context.Context, modelKey string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings WHERE model_key = ?`, modelKey).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
