package files

import (
	"context"

	"github.com/dmitrijs2005/filedrop/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, rec *models.StorageRecord) error
	ListByProject(ctx context.Context, projectID string) ([]*models.StorageRecord, error)
	GetByID(ctx context.Context, projectID, id string) (*models.StorageRecord, error)
	DeleteByID(ctx context.Context, projectID, id string) error
}
