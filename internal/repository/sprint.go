package repository

import (
	"context"

	"github.com/planforge/sprint-planner/internal/entities"
)

type SprintRepository interface {
	CreateSprint(ctx context.Context, draft entities.SprintDraft) (entities.Sprint, error)
	GetSprint(ctx context.Context, sprintID string) (entities.Sprint, error)
	LinkTask(ctx context.Context, sprintID, taskID string) error
}
