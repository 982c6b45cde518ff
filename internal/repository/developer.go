package repository

import (
	"context"

	"github.com/planforge/sprint-planner/internal/entities"
)

type DeveloperRepository interface {
	CreateDeveloper(ctx context.Context, dev entities.Developer) (entities.Developer, error)
	GetDeveloper(ctx context.Context, developerID string) (entities.Developer, error)
	ListActiveDevelopers(ctx context.Context) ([]entities.Developer, error)
	ListTeamVelocity(ctx context.Context, limit int) ([]float64, error)
	RecordVelocity(ctx context.Context, sprintID, developerID string, storyPoints int) error
}
