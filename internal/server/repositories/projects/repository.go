package projects

import (
	"context"

	"github.com/dmitrijs2005/filedrop/internal/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Project) (*models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
}
