package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	collection TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
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
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	kind TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (source_id, target_id, kind)
);`

const sqliteListDocuments = `SELECT id, user_id, collection, title, body, created_at, updated_at FROM documents WHERE collection = ? AND user_id = ? ORDER BY created_at, id`
const sqliteGetDocument = `SELECT id, user_id, collection, title, body, created_at, updated_at FROM documents WHERE id = ? AND user_id = ?`
const sqliteInsertDocument = `INSERT INTO documents (id, user_id, collection, title, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
const sqliteUpdateDocument = `UPDATE documents SET title = ?, body = ?, updated_at = ? WHERE id = ? AND user_id = ?`
const sqliteDeleteDocument = `DELETE FROM documents WHERE id = ? AND user_id = ?`
const sqliteInsertEntity = `INSERT OR REPLACE INTO entities (id, user_id, type, code, name) VALUES (?, ?, ?, ?, ?)`
const sqliteInsertRelation = `INSERT OR IGNORE INTO relations (source_id, target_id, kind) VALUES (?, ?, ?)`

var (
	_ Store = (*Database)(nil)
	_ Store = (*SQLiteDatabase)(nil)
)

// SQLiteDatabase is the local Store backend.
type SQLiteDatabase struct {
	db *sql.DB
}

// NewSQLiteDatabase opens (and migrates) the database at path; ":memory:"
// gives a private in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteDatabase{db: db}, nil
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

func scanDocument(row interface{ Scan(...any) error }) (Document, error) {
	var document Document
	err := row.Scan(&document.Id, &document.UserId, &document.Collection, &document.Title, &document.Body, &document.CreatedAt, &document.UpdatedAt)
	return document, err
}

func (s *SQLiteDatabase) ListDocuments(ctx context.Context, collection, userId string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, sqliteListDocuments, collection, userId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []Document
	for rows.Next() {
		document, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, document)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return documents, nil
}

func (s *SQLiteDatabase) GetDocument(ctx context.Context, userId, id string) (Document, error) {
	document, err := scanDocument(s.db.QueryRowContext(ctx, sqliteGetDocument, id, userId))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, err
	}
	return document, nil
}

func (s *SQLiteDatabase) CreateDocument(ctx context.Context, document Document) (Document, error) {
	document, err := stampNew(document)
	if err != nil {
		return Document{}, err
	}

	if _, err := s.db.ExecContext(ctx, sqliteInsertDocument, document.Id, document.UserId, document.Collection, document.Title, document.Body, document.CreatedAt, document.UpdatedAt); err != nil {
		return Document{}, err
	}
	return document, nil
}

func (s *SQLiteDatabase) UpdateDocument(ctx context.Context, document Document) (Document, error) {
	if err := validateDocument(document); err != nil {
		return Document{}, err
	}

	result, err := s.db.ExecContext(ctx, sqliteUpdateDocument, document.Title, document.Body, time.Now().UTC(), document.Id, document.UserId)
	if err != nil {
		return Document{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Document{}, err
	}
	if affected == 0 {
		return Document{}, fmt.Errorf("document %s: %w", document.Id, ErrNotFound)
	}
	return s.GetDocument(ctx, document.UserId, document.Id)
}

func (s *SQLiteDatabase) DeleteDocument(ctx context.Context, userId, id string) error {
	result, err := s.db.ExecContext(ctx, sqliteDeleteDocument, id, userId)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteDatabase) InsertGraph(ctx context.Context, userId string, entities []Entity, relations []Relation) (GraphIds, error) {
	ids, resolved := assignGraphIds(entities, relations)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return GraphIds{}, err
	}
	defer tx.Rollback()

	for _, entity := range entities {
		if _, err := tx.ExecContext(ctx, sqliteInsertEntity, ids[entity.TempId], userId, int(entity.Type), entity.Code, entity.Name); err != nil {
			return GraphIds{}, fmt.Errorf("insert entity %s: %w", entity.TempId, err)
		}
	}
	for _, relation := range resolved {
		if _, err := tx.ExecContext(ctx, sqliteInsertRelation, ids[relation.SourceTempId], ids[relation.TargetTempId], relation.Kind); err != nil {
			return GraphIds{}, fmt.Errorf("insert relation %s -> %s: %w", relation.SourceTempId, relation.TargetTempId, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return GraphIds{}, err
	}

	return GraphIds{Entities: ids, Relations: len(resolved)}, nil
}
