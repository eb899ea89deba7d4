package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// Store is the user-scoped document store the authoring tool reads and writes.
type Store interface {
	CreateDocument(ctx context.Context, document Document) (Document, error)
	UpdateDocument(ctx context.Context, document Document) (Document, error)
	DeleteDocument(ctx context.Context, userId, id string) error
	GetDocument(ctx context.Context, userId, id string) (Document, error)
	ListDocuments(ctx context.Context, collection, userId string) ([]Document, error)
	InsertGraph(ctx context.Context, userId string, entities []Entity, relations []Relation) (GraphIds, error)
	Close() error
}

type Database struct {
	Pool *pgxpool.Pool
}

func NewDatabase(ctx context.Context, connectionString string) (*Database, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Database{Pool: pool}, nil
}

func (d *Database) Close() error {
	d.Pool.Close()
	return nil
}

func newId() string {
	return uuid.NewString()
}

func stampNew(document Document) (Document, error) {
	if err := validateDocument(document); err != nil {
		return Document{}, err
	}
	now := time.Now().UTC()
	document.Id = newId()
	document.CreatedAt = now
	document.UpdatedAt = now
	return document, nil
}

func validateDocument(document Document) error {
	if strings.TrimSpace(document.UserId) == "" {
		return errors.New("document user id is required")
	}
	if strings.TrimSpace(document.Collection) == "" {
		return errors.New("document collection is required")
	}
	return nil
}

// assignGraphIds gives every entity a store id and keeps the relations whose
// endpoints both resolve.
func assignGraphIds(entities []Entity, relations []Relation) (map[string]string, []Relation) {
	ids := make(map[string]string, len(entities))
	for _, entity := range entities {
		if _, exists := ids[entity.TempId]; !exists {
			ids[entity.TempId] = newId()
		}
	}

	var resolved []Relation
	for _, relation := range relations {
		_, sourceFound := ids[relation.SourceTempId]
		_, targetFound := ids[relation.TargetTempId]
		if sourceFound && targetFound {
			resolved = append(resolved, relation)
		}
	}
	return ids, resolved
}
