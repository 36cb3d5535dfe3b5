// Package services contains server-side business logic. FileService owns
// projects and the file rows written by uploads, and deletes files from both
// the blob store and the metadata store.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/dbx"
	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/models"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filedrop/internal/upload"
)

var ErrEmptyProjectName = errors.New("project name is empty")

type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       upload.BlobStore
	bucket      string
	logger      logging.Logger
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, blobs upload.BlobStore, bucket string, logger logging.Logger) *FileService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		bucket:      bucket,
		logger:      logger.With("module", "files"),
	}
}

// Metadata returns the store upload cycles write their rows to.
func (s *FileService) Metadata() upload.MetadataStore {
	return s.repomanager.Files(s.db)
}

func (s *FileService) CreateProject(ctx context.Context, userID, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyProjectName
	}
	p, err := s.repomanager.Projects(s.db).Create(ctx, &models.Project{UserID: userID, Name: name})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// Authorize checks that projectID exists and belongs to userID.
func (s *FileService) Authorize(ctx context.Context, userID, projectID string) error {
	p, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return common.ErrorForbidden
	}
	return nil
}

func (s *FileService) List(ctx context.Context, userID, projectID string) ([]*models.StorageRecord, error) {
	if err := s.Authorize(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.repomanager.Files(s.db).ListByProject(ctx, projectID)
}

// DeleteFile removes the row and then the blob inside one transaction, so a
// blob that cannot be removed leaves the row in place.
func (s *FileService) DeleteFile(ctx context.Context, userID, projectID, fileID string) error {
	if err := s.Authorize(ctx, userID, projectID); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Files(tx)

		rec, err := repo.GetByID(ctx, projectID, fileID)
		if err != nil {
			return err
		}
		if err := repo.DeleteByID(ctx, projectID, fileID); err != nil {
			return err
		}
		if err := s.blobs.Remove(ctx, s.bucket, []string{rec.StorageKey}); err != nil {
			s.logger.Error(ctx, "blob remove failed", "key", rec.StorageKey, "error", err)
			return fmt.Errorf("remove blob: %w", err)
		}

		s.logger.Info(ctx, "file deleted", "project", projectID, "file", fileID, "key", rec.StorageKey)
		return nil
	})
}
