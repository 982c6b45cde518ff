package repository

import (
	"context"

	"github.com/planforge/sprint-planner/internal/entities"
)

type TaskRepository interface {
	CreateTask(ctx context.Context, task entities.Task) (entities.Task, error)
	GetTask(ctx context.Context, taskID string) (entities.Task, error)
	ListTasksByStatus(ctx context.Context, statuses []entities.TaskStatus) ([]entities.Task, error)
	ListSprintTasks(ctx context.Context, sprintID string) ([]entities.Task, error)
	AssignTask(ctx context.Context, taskID, developerID string) (entities.Task, error)
}
