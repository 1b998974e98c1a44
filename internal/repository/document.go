package repository

import (
	"context"

	"casevault/internal/model"
)

// Package repository contains data access abstractions for document
// metadata. Implementations live in subpackages (e.g. postgres) and hold
// persistence logic only; lifecycle rules stay in the service layer.

// DocumentRepository defines data access for document metadata records.
// Every read and write is scoped by owner id; a record another owner holds
// behaves exactly like a missing record.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns the owner's document or sql.ErrNoRows.
	FindByID(ctx context.Context, ownerID, id string) (*model.Document, error)

	// List returns a page of the owner's documents plus the total count.
	List(ctx context.Context, ownerID string, pq PageQuery) (*PageResult[model.Document], error)

	// Update rewrites the mutable fields of doc in a single statement,
	// guarded by an optimistic version check: the row is matched on
	// (id, owner, version) and the version is incremented. sql.ErrNoRows
	// means the row is gone or the caller's copy is stale; the caller
	// re-reads to tell the two apart.
	Update(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Delete removes the owner's document, guarded by the same version
	// check. It reports whether a row was actually removed.
	Delete(ctx context.Context, ownerID, id string, version int64) (bool, error)
}

// PageQuery holds limit/offset pagination parameters and optional filters.
type PageQuery struct {
	Limit  int
	Offset int
	// CaseID, when non-empty, restricts the listing to one case's documents.
	CaseID string
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
