package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps every collection in a single JSONB table so the
// document contract stays schema-free on the relational backend.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, db *pgxpool.Pool) (*PostgresStore, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		doc JSONB NOT NULL,
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS documents_doc_idx ON documents USING GIN (doc);
	`

	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure documents schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	id := uuid.New().String()
	if err := p.Put(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (p *PostgresStore) Put(ctx context.Context, collection, id string, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	query := `
	INSERT INTO documents (collection, id, doc)
	VALUES ($1, $2, $3)
	ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc
	`

	if _, err := p.db.Exec(ctx, query, collection, id, payload); err != nil {
		return fmt.Errorf("failed to put document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	query := `SELECT doc FROM documents WHERE collection = $1 AND id = $2`

	var payload []byte
	err := p.db.QueryRow(ctx, query, collection, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}

	return decodeDoc(payload)
}

func (p *PostgresStore) List(ctx context.Context, collection string) ([]Record, error) {
	query := `SELECT id, doc FROM documents WHERE collection = $1`
	return p.runQuery(ctx, query, collection)
}

func (p *PostgresStore) QueryEquals(ctx context.Context, collection, field, value string) ([]Record, error) {
	query := `SELECT id, doc FROM documents WHERE collection = $1 AND doc->>$2 = $3`
	return p.runQuery(ctx, query, collection, field, value)
}

func (p *PostgresStore) QueryArrayContains(ctx context.Context, collection, field, value string) ([]Record, error) {
	query := `SELECT id, doc FROM documents WHERE collection = $1 AND doc->$2 @> to_jsonb($3::text)`
	return p.runQuery(ctx, query, collection, field, value)
}

func (p *PostgresStore) runQuery(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		doc, err := decodeDoc(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, Record{ID: id, Data: doc})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return out, nil
}

func (p *PostgresStore) Update(ctx context.Context, collection, id string, patch Document) error {
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	query := `UPDATE documents SET doc = doc || $3 WHERE collection = $1 AND id = $2`

	result, err := p.db.Exec(ctx, query, collection, id, payload)
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`

	// Zero rows affected means the document was already gone, which is fine.
	if _, err := p.db.Exec(ctx, query, collection, id); err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

func decodeDoc(payload []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
