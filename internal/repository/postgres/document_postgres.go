package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"casevault/internal/model"
	"casevault/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of
// repository.DocumentRepository. It uses database/sql with parameterized
// queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, owner_id, title, document_type, case_id, client_id,
	original_name, storage_pointer, mime_type, size_bytes, description, tags,
	version, created_at, updated_at`

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, owner_id, title, document_type, case_id, client_id,
			original_name, storage_pointer, mime_type, size_bytes, description, tags,
			version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + documentColumns
	tags, err := marshalTags(doc.Tags)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.OwnerID,
		doc.Title,
		string(doc.DocumentType),
		nullable(doc.CaseID),
		nullable(doc.ClientID),
		doc.OriginalName,
		doc.StoragePointer,
		doc.MimeType,
		doc.SizeBytes,
		doc.Description,
		tags,
		doc.Version,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID, scoped to the owner.
func (r *DocumentPostgres) FindByID(ctx context.Context, ownerID, id string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND owner_id = $2
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id, ownerID))
}

// List returns the owner's documents using LIMIT/OFFSET pagination and a
// total count, optionally filtered to one case.
func (r *DocumentPostgres) List(ctx context.Context, ownerID string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	where := `WHERE owner_id = $1`
	args := []any{ownerID}
	if pq.CaseID != "" {
		where += ` AND case_id = $2`
		args = append(args, pq.CaseID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents `+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	qList := `
		SELECT ` + documentColumns + `
		FROM documents ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $` + fmt.Sprint(len(args)+1) + ` OFFSET $` + fmt.Sprint(len(args)+2)
	args = append(args, pq.Limit, pq.Offset)

	rows, err := r.db.QueryContext(ctx, qList, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

// Update rewrites the mutable columns in one statement with an optimistic
// version check. A vanished or stale row surfaces as sql.ErrNoRows.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET title = $1, document_type = $2, case_id = $3, client_id = $4,
			original_name = $5, storage_pointer = $6, mime_type = $7,
			size_bytes = $8, description = $9, tags = $10,
			version = version + 1, updated_at = $11
		WHERE id = $12 AND owner_id = $13 AND version = $14
		RETURNING ` + documentColumns
	tags, err := marshalTags(doc.Tags)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, q,
		doc.Title,
		string(doc.DocumentType),
		nullable(doc.CaseID),
		nullable(doc.ClientID),
		doc.OriginalName,
		doc.StoragePointer,
		doc.MimeType,
		doc.SizeBytes,
		doc.Description,
		tags,
		doc.UpdatedAt,
		doc.ID,
		doc.OwnerID,
		doc.Version,
	)
	return scanDocument(row)
}

// Delete removes the owner's document with the same version guard and
// reports whether a row was removed.
func (r *DocumentPostgres) Delete(ctx context.Context, ownerID, id string, version int64) (bool, error) {
	const q = `DELETE FROM documents WHERE id = $1 AND owner_id = $2 AND version = $3`
	res, err := r.db.ExecContext(ctx, q, id, ownerID, version)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d       model.Document
		docType string
		caseID  sql.NullString
		client  sql.NullString
		tags    []byte
	)
	if err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.Title,
		&docType,
		&caseID,
		&client,
		&d.OriginalName,
		&d.StoragePointer,
		&d.MimeType,
		&d.SizeBytes,
		&d.Description,
		&tags,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.DocumentType = model.DocumentType(docType)
	d.CaseID = caseID.String
	d.ClientID = client.String
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &d.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &d, nil
}

// marshalTags encodes tags for the JSONB column; nil stays SQL NULL.
func marshalTags(tags []string) (any, error) {
	if tags == nil {
		return nil, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return b, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
