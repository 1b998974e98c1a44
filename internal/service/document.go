package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"casevault/internal/apperror"
	"casevault/internal/model"
	"casevault/internal/repository"
	"casevault/internal/storage"
)

// pointerPrefix is the directory inside the storage root where document
// objects live.
const pointerPrefix = "documents"

// FileInput describes an incoming file part.
type FileInput struct {
	// OriginalName is the client-supplied filename, used for display and to
	// extract the extension; it never reaches the filesystem as a path.
	OriginalName string
	ContentType  string
	// Size is the declared byte count; the write path independently caps
	// the actual bytes received.
	Size    int64
	Content io.Reader
}

// CreateInput carries the metadata and file of a new document.
type CreateInput struct {
	Title        string
	DocumentType model.DocumentType
	CaseID       string
	ClientID     string
	Description  string
	Tags         []string
	File         FileInput
}

// UpdateInput carries a partial update. Nil fields are left unchanged; a
// nil File means the stored bytes are kept.
type UpdateInput struct {
	Title        *string
	DocumentType *model.DocumentType
	CaseID       *string
	ClientID     *string
	Description  *string
	Tags         []string
	File         *FileInput
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService orchestrates the document lifecycle across the metadata
// store and the file store. Multi-step operations compensate on partial
// failure so the persisted state is always a record with a resolvable file
// or nothing; an orphan file through the best-effort cleanup path is the
// only tolerated leak, and it is logged.
type DocumentService interface {
	// Create validates the input, stages the file write, then inserts the
	// metadata record. A failed insert deletes the just-written file.
	Create(ctx context.Context, ownerID string, in CreateInput) (*model.Document, error)

	// Get returns the owner's document metadata.
	Get(ctx context.Context, ownerID, id string) (*model.Document, error)

	// List returns the owner's documents with limit/offset pagination and
	// an optional case filter.
	List(ctx context.Context, ownerID string, limit, offset int, caseID string) (*DocumentListResult, error)

	// Update applies metadata changes and/or replaces the stored file. A
	// replacement file is written under a new pointer before the single
	// metadata write swaps it in; the old file is released best-effort
	// only after the metadata committed.
	Update(ctx context.Context, ownerID, id string, in UpdateInput) (*model.Document, error)

	// Delete removes file then record. An already-absent file counts as
	// success; repeating Delete after success succeeds again.
	Delete(ctx context.Context, ownerID, id string) error

	// Open resolves the owner's document and opens its content for
	// streaming. The caller must close the reader.
	Open(ctx context.Context, ownerID, id string) (*model.Document, io.ReadCloser, error)
}

type documentService struct {
	store          storage.Storage
	repo           repository.DocumentRepository
	maxUploadBytes int64
	locks          *idLocks
}

// NewDocumentService constructs a DocumentService with the given upload
// size limit in bytes.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, maxUploadBytes int64) DocumentService {
	return &documentService{
		store:          store,
		repo:           repo,
		maxUploadBytes: maxUploadBytes,
		locks:          newIDLocks(),
	}
}

func (s *documentService) Create(ctx context.Context, ownerID string, in CreateInput) (*model.Document, error) {
	if ownerID == "" {
		return nil, apperror.Validation("owner is required")
	}
	title := strings.TrimSpace(in.Title)
	if err := validateMetadata(title, in.DocumentType, in.CaseID); err != nil {
		return nil, err
	}
	if err := s.validateFile(in.File); err != nil {
		return nil, err
	}

	pointer, size, err := s.stageFile(ctx, in.File)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &model.Document{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		Title:          title,
		DocumentType:   in.DocumentType,
		CaseID:         in.CaseID,
		ClientID:       in.ClientID,
		OriginalName:   in.File.OriginalName,
		StoragePointer: pointer,
		MimeType:       contentTypeOrDefault(in.File.ContentType),
		SizeBytes:      size,
		Description:    in.Description,
		Tags:           in.Tags,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Compensation: the insert failed, so the just-written file must
		// not survive the call.
		if delErr := s.store.Delete(ctx, pointer); delErr != nil {
			logEvent("error", "create_compensation_failed", map[string]any{
				"pointer": pointer,
				"error":   delErr.Error(),
			})
		}
		return nil, fmt.Errorf("save document metadata: %w", err)
	}
	return stored, nil
}

func (s *documentService) Get(ctx context.Context, ownerID, id string) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("document not found")
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) List(ctx context.Context, ownerID string, limit, offset int, caseID string) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.repo.List(ctx, ownerID, repository.PageQuery{Limit: limit, Offset: offset, CaseID: caseID})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) Update(ctx context.Context, ownerID, id string, in UpdateInput) (*model.Document, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	doc, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("document not found")
		}
		return nil, err
	}

	next := *doc
	if in.Title != nil {
		next.Title = strings.TrimSpace(*in.Title)
	}
	if in.DocumentType != nil {
		next.DocumentType = *in.DocumentType
	}
	if in.CaseID != nil {
		next.CaseID = *in.CaseID
	}
	if in.ClientID != nil {
		next.ClientID = *in.ClientID
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Tags != nil {
		next.Tags = in.Tags
	}
	if err := validateMetadata(next.Title, next.DocumentType, next.CaseID); err != nil {
		return nil, err
	}

	oldPointer := doc.StoragePointer
	newPointer := ""
	if in.File != nil {
		if err := s.validateFile(*in.File); err != nil {
			return nil, err
		}
		// The replacement goes under a fresh pointer; the old file stays
		// untouched until the metadata write commits.
		pointer, size, err := s.stageFile(ctx, *in.File)
		if err != nil {
			return nil, err
		}
		newPointer = pointer
		next.StoragePointer = pointer
		next.OriginalName = in.File.OriginalName
		next.MimeType = contentTypeOrDefault(in.File.ContentType)
		next.SizeBytes = size
	}
	next.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, &next)
	if err != nil {
		if newPointer != "" {
			// Rollback: the metadata write failed, so the record still
			// points at the old file and the new one must go.
			if delErr := s.store.Delete(ctx, newPointer); delErr != nil {
				logEvent("error", "update_rollback_failed", map[string]any{
					"document_id": id,
					"pointer":     newPointer,
					"error":       delErr.Error(),
				})
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyStaleWrite(ctx, ownerID, id)
		}
		return nil, fmt.Errorf("update document metadata: %w", err)
	}

	if newPointer != "" && oldPointer != newPointer {
		// The metadata now reflects truth; reclaiming the old file is
		// best-effort and never fails the update.
		if delErr := s.store.Delete(ctx, oldPointer); delErr != nil {
			logEvent("warn", "file_leaked", map[string]any{
				"document_id": id,
				"pointer":     oldPointer,
				"error":       delErr.Error(),
			})
		}
	}
	return updated, nil
}

func (s *documentService) Delete(ctx context.Context, ownerID, id string) error {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	doc, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already gone. Retried deletes must succeed, so an absent
			// record reads as the outcome the caller asked for.
			return nil
		}
		return err
	}

	// File first. If the file cannot be removed for a real reason the
	// record stays too, keeping state consistent; a file already absent is
	// fine, retried deletes must stay idempotent.
	if err := s.store.Delete(ctx, doc.StoragePointer); err != nil {
		return apperror.Storage("delete document file", err)
	}

	deleted, err := s.repo.Delete(ctx, ownerID, id, doc.Version)
	if err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	if !deleted {
		if clsErr := s.classifyStaleWrite(ctx, ownerID, id); apperror.IsKind(clsErr, apperror.KindNotFound) {
			// A concurrent delete won; the outcome the caller asked for
			// holds either way.
			return nil
		}
		return apperror.Conflict("document was modified concurrently")
	}
	return nil
}

func (s *documentService) Open(ctx context.Context, ownerID, id string) (*model.Document, io.ReadCloser, error) {
	doc, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apperror.NotFound("document not found")
		}
		return nil, nil, err
	}

	rc, _, err := s.store.Get(ctx, doc.StoragePointer)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			// The record exists but its file does not: an integrity fault
			// from an earlier compensation failure, not an ordinary miss.
			logEvent("error", "integrity_fault", map[string]any{
				"document_id": id,
				"pointer":     doc.StoragePointer,
			})
			return nil, nil, apperror.Integrity("document file missing from storage", err)
		}
		return nil, nil, apperror.Storage("open document file", err)
	}
	return doc, rc, nil
}

// stageFile writes the incoming bytes under a fresh pointer. The reader is
// hard-capped at the configured limit so a client declaring one size and
// sending another cannot exceed it; an oversize write is unstaged.
func (s *documentService) stageFile(ctx context.Context, in FileInput) (string, int64, error) {
	pointer := newPointer(in.OriginalName)
	capped := io.LimitReader(in.Content, s.maxUploadBytes+1)
	info, err := s.store.Put(ctx, pointer, capped, storage.PutObjectOptions{
		Size:        -1,
		ContentType: contentTypeOrDefault(in.ContentType),
		Metadata:    map[string]string{"original-filename": in.OriginalName},
	})
	if err != nil {
		return "", 0, apperror.Storage("store document file", err)
	}
	if info.Size > s.maxUploadBytes {
		if delErr := s.store.Delete(ctx, pointer); delErr != nil {
			logEvent("error", "oversize_cleanup_failed", map[string]any{
				"pointer": pointer,
				"error":   delErr.Error(),
			})
		}
		return "", 0, apperror.Validation("file exceeds maximum size of %d bytes", s.maxUploadBytes)
	}
	return pointer, info.Size, nil
}

// classifyStaleWrite distinguishes a vanished record from a stale version
// after a guarded write matched no rows.
func (s *documentService) classifyStaleWrite(ctx context.Context, ownerID, id string) error {
	if _, err := s.repo.FindByID(ctx, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("document not found")
		}
		return err
	}
	return apperror.Conflict("document was modified concurrently")
}

func (s *documentService) validateFile(in FileInput) error {
	if in.Content == nil {
		return apperror.Validation("file is required")
	}
	if in.Size > s.maxUploadBytes {
		return apperror.Validation("file exceeds maximum size of %d bytes", s.maxUploadBytes)
	}
	return nil
}

// validateMetadata enforces the title/type/case-reference rules shared by
// Create and Update.
func validateMetadata(title string, docType model.DocumentType, caseID string) error {
	if title == "" {
		return apperror.Validation("title is required")
	}
	if !docType.Valid() {
		return apperror.Validation("document_type must be %q or %q", model.DocumentTypeCase, model.DocumentTypeStandalone)
	}
	if docType == model.DocumentTypeCase && caseID == "" {
		return apperror.Validation("case_id is required for case documents")
	}
	return nil
}

// newPointer generates a collision-resistant stored name. Only the
// extension of the client filename survives, and only if it is a plain
// suffix with no separators.
func newPointer(originalName string) string {
	ext := filepath.Ext(filepath.Base(originalName))
	if strings.ContainsAny(ext, "/\\") {
		ext = ""
	}
	return pointerPrefix + "/" + uuid.New().String() + ext
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
