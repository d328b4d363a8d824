package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/carlsnewton/aristotle/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection  TEXT NOT NULL,
	id          TEXT NOT NULL,
	text        TEXT NOT NULL,
	metadata    TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

// docDB stores documents and their metadata in SQLite. Embeddings live in the
// flat indexes, not here: SQLite is the durable source of truth for text and
// metadata, the indexes are rebuildable from it.
type docDB struct {
	db   *sql.DB
	path string
}

func openDocDB(path string) (*docDB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &docDB{db: db, path: path}, nil
}

func (d *docDB) upsertDocument(ctx context.Context, doc *models.Document) error {
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, text, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			text = excluded.text,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		string(doc.Collection), doc.ID, doc.Text, string(meta),
		doc.CreatedAt.UnixMilli(), doc.UpdatedAt.UnixMilli())
	return err
}

func (d *docDB) listDocuments(ctx context.Context, coll models.Collection) ([]*models.Document, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, text, metadata, created_at, updated_at
		FROM documents WHERE collection = ? ORDER BY rowid`, string(coll))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var (
			doc              models.Document
			meta             string
			created, updated int64
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &meta, &created, &updated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		doc.Collection = coll
		doc.CreatedAt = time.UnixMilli(created)
		doc.UpdatedAt = time.UnixMilli(updated)
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

func (d *docDB) deleteDocument(ctx context.Context, coll models.Collection, id string) error {
	_, err := d.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, string(coll), id)
	return err
}

func (d *docDB) Close() error {
	return d.db.Close()
}
