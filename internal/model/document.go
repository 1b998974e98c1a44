package model

import "time"

// DocumentType classifies a document by what it is attached to.
type DocumentType string

const (
	// DocumentTypeCase marks a document that belongs to a case and must
	// carry a case reference.
	DocumentTypeCase DocumentType = "case"
	// DocumentTypeStandalone marks a document with no case association.
	DocumentTypeStandalone DocumentType = "standalone"
)

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	return t == DocumentTypeCase || t == DocumentTypeStandalone
}

// Document represents a stored file and its metadata.
// This is a pure domain model with no database-specific dependencies or tags.
// StoragePointer is a root-relative path internal to the storage subsystem;
// it is never serialized to clients.
type Document struct {
	ID             string       `json:"id"`
	OwnerID        string       `json:"owner_id"`
	Title          string       `json:"title"`
	DocumentType   DocumentType `json:"document_type"`
	CaseID         string       `json:"case_id,omitempty"`
	ClientID       string       `json:"client_id,omitempty"`
	OriginalName   string       `json:"original_name"`
	StoragePointer string       `json:"-"`
	MimeType       string       `json:"mime_type"`
	SizeBytes      int64        `json:"file_size"`
	Description    string       `json:"description,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	Version        int64        `json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
