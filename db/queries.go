package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const createSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	collection TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_user_collection ON documents (user_id, collection);
CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type INTEGER NOT NULL,
	code TEXT,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS relations (
	source_id TEXT NOT NULL REFERENCES entities (id) ON DELETE CASCADE,
	target_id TEXT NOT NULL REFERENCES entities (id) ON DELETE CASCADE,
	kind TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (source_id, target_id, kind)
)`

const listDocuments = `SELECT id, user_id, collection, title, body, created_at, updated_at FROM documents WHERE collection = $1 AND user_id = $2 ORDER BY created_at, id`
const getDocument = `SELECT id, user_id, collection, title, body, created_at, updated_at FROM documents WHERE id = $1 AND user_id = $2`
const insertDocument = `INSERT INTO documents (id, user_id, collection, title, body, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
const updateDocument = `UPDATE documents SET title = $3, body = $4, updated_at = $5 WHERE id = $1 AND user_id = $2 RETURNING collection, created_at`
const deleteDocument = `DELETE FROM documents WHERE id = $1 AND user_id = $2`

const insertEntity = `INSERT INTO entities (id, user_id, type, code, name) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO UPDATE SET type = EXCLUDED.type, code = EXCLUDED.code, name = EXCLUDED.name`
const insertRelation = `INSERT INTO relations (source_id, target_id, kind) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`

func insertCallback(ct pgconn.CommandTag) error {
	return nil
}

func (d *Database) Migrate(ctx context.Context) error {
	if _, err := d.Pool.Exec(ctx, createSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (d *Database) ListDocuments(ctx context.Context, collection, userId string) ([]Document, error) {
	rows, err := d.Pool.Query(ctx, listDocuments, collection, userId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []Document
	for rows.Next() {
		var document Document
		if err := rows.Scan(&document.Id, &document.UserId, &document.Collection, &document.Title, &document.Body, &document.CreatedAt, &document.UpdatedAt); err != nil {
			return nil, err
		}
		documents = append(documents, document)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return documents, nil
}

func (d *Database) GetDocument(ctx context.Context, userId, id string) (Document, error) {
	var document Document
	err := d.Pool.QueryRow(ctx, getDocument, id, userId).Scan(&document.Id, &document.UserId, &document.Collection, &document.Title, &document.Body, &document.CreatedAt, &document.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, err
	}
	return document, nil
}

func (d *Database) CreateDocument(ctx context.Context, document Document) (Document, error) {
	document, err := stampNew(document)
	if err != nil {
		return Document{}, err
	}

	if _, err := d.Pool.Exec(ctx, insertDocument, document.Id, document.UserId, document.Collection, document.Title, document.Body, document.CreatedAt, document.UpdatedAt); err != nil {
		return Document{}, err
	}
	return document, nil
}

func (d *Database) UpdateDocument(ctx context.Context, document Document) (Document, error) {
	if err := validateDocument(document); err != nil {
		return Document{}, err
	}
	document.UpdatedAt = time.Now().UTC()

	err := d.Pool.QueryRow(ctx, updateDocument, document.Id, document.UserId, document.Title, document.Body, document.UpdatedAt).Scan(&document.Collection, &document.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, fmt.Errorf("document %s: %w", document.Id, ErrNotFound)
	}
	if err != nil {
		return Document{}, err
	}
	return document, nil
}

func (d *Database) DeleteDocument(ctx context.Context, userId, id string) error {
	tag, err := d.Pool.Exec(ctx, deleteDocument, id, userId)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

func (d *Database) InsertGraph(ctx context.Context, userId string, entities []Entity, relations []Relation) (GraphIds, error) {
	ids, resolved := assignGraphIds(entities, relations)
	if len(entities) == 0 {
		return GraphIds{Entities: ids}, nil
	}

	batch := pgx.Batch{}
	var queuedQueries []*pgx.QueuedQuery

	for _, entity := range entities {
		queuedQueries = append(queuedQueries, batch.Queue(insertEntity, ids[entity.TempId], userId, int(entity.Type), entity.Code, entity.Name))
	}
	for _, relation := range resolved {
		queuedQueries = append(queuedQueries, batch.Queue(insertRelation, ids[relation.SourceTempId], ids[relation.TargetTempId], relation.Kind))
	}

	for _, queuedQuery := range queuedQueries {
		queuedQuery.Exec(insertCallback)
	}

	if err := d.Pool.SendBatch(ctx, &batch).Close(); err != nil {
		return GraphIds{}, err
	}

	return GraphIds{Entities: ids, Relations: len(resolved)}, nil
}
