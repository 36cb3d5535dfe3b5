// Package models defines data models persisted in the metadata store.
package models

import "time"

// StorageRecord is the metadata row written for every uploaded blob.
// It is created only after the blob write succeeded.
type StorageRecord struct {
	// ID is assigned by the database.
	ID string
	// ParentID is the grouping container (project) the file belongs to.
	ParentID string
	// DisplayName is the original, unsanitized file name.
	DisplayName string
	// StorageKey is the sanitized object key the bytes were written under.
	StorageKey string
	SizeBytes  int64
	MimeType   string
	// UploadedAt is set by the database on insert.
	UploadedAt time.Time
}
