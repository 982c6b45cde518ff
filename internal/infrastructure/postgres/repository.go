package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planforge/sprint-planner/internal/entities"
	"github.com/planforge/sprint-planner/internal/repository"
	"github.com/planforge/sprint-planner/pkg/logger"
)

const (
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
)

type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresRepository(pool *pgxpool.Pool, log logger.Logger) repository.Repository {
	return &PostgresRepository{pool: pool, logger: log}
}

func (r *PostgresRepository) CreateDeveloper(ctx context.Context, dev entities.Developer) (entities.Developer, error) {
	if dev.ID == "" {
		dev.ID = uuid.NewString()
	}
	r.logger.Debug("creating developer", "id", dev.ID)

	_, err := r.pool.Exec(ctx, `INSERT INTO developers (id, name, velocity, strengths, preferred_task_types, code_quality, collaboration, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		dev.ID, dev.Name, dev.Velocity, dev.Strengths, taskTypesToStrings(dev.PreferredTaskTypes), dev.CodeQuality, dev.Collaboration, dev.IsActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return entities.Developer{}, entities.ErrDeveloperExists
		}
		r.logger.Error("failed to insert developer", "id", dev.ID, "error", err)
		return entities.Developer{}, err
	}
	return r.GetDeveloper(ctx, dev.ID)
}

func (r *PostgresRepository) GetDeveloper(ctx context.Context, developerID string) (entities.Developer, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, velocity, strengths, preferred_task_types, code_quality, collaboration, is_active
        FROM developers WHERE id=$1`, developerID)
	return scanDeveloper(row)
}

func (r *PostgresRepository) ListActiveDevelopers(ctx context.Context) ([]entities.Developer, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, velocity, strengths, preferred_task_types, code_quality, collaboration, is_active
        FROM developers WHERE is_active=true ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var developers []entities.Developer
	for rows.Next() {
		dev, err := scanDeveloper(rows)
		if err != nil {
			return nil, err
		}
		developers = append(developers, dev)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return developers, nil
}

func (r *PostgresRepository) ListTeamVelocity(ctx context.Context, limit int) ([]float64, error) {
	rows, err := r.pool.Query(ctx, `SELECT SUM(story_points)::float8
        FROM velocity_history GROUP BY sprint_id ORDER BY MIN(recorded_at) DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recent []float64
	for rows.Next() {
		var points float64
		if err = rows.Scan(&points); err != nil {
			return nil, err
		}
		recent = append(recent, points)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	// Query returns newest first; callers expect chronological order.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent, nil
}

func (r *PostgresRepository) RecordVelocity(ctx context.Context, sprintID, developerID string, storyPoints int) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO velocity_history (sprint_id, developer_id, story_points)
        VALUES ($1,$2,$3)
        ON CONFLICT (sprint_id, developer_id) DO UPDATE SET story_points=EXCLUDED.story_points, recorded_at=now()`,
		sprintID, developerID, storyPoints,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgFKViolation {
			return entities.ErrSprintNotFound
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) CreateTask(ctx context.Context, task entities.Task) (entities.Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = entities.StatusTodo
	}
	r.logger.Debug("creating task", "id", task.ID, "type", task.Type, "priority", task.Priority)

	deps := task.Dependencies
	if deps == nil {
		deps = []string{}
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO tasks (id, title, description, type, priority, estimated_effort_hours, story_points, assignee_id, sprint_id, dependencies, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		task.ID, task.Title, task.Description, string(task.Type), string(task.Priority),
		task.EstimatedEffortHours, task.StoryPoints, task.AssigneeID, task.SprintID, deps, string(task.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return entities.Task{}, entities.ErrTaskExists
			case pgFKViolation:
				return entities.Task{}, entities.ErrDeveloperNotFound
			}
		}
		r.logger.Error("failed to insert task", "id", task.ID, "error", err)
		return entities.Task{}, err
	}
	return r.GetTask(ctx, task.ID)
}

func (r *PostgresRepository) GetTask(ctx context.Context, taskID string) (entities.Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, title, description, type, priority, estimated_effort_hours, story_points, assignee_id, sprint_id, dependencies, status, created_at, updated_at
        FROM tasks WHERE id=$1`, taskID)
	return scanTask(row)
}

func (r *PostgresRepository) ListTasksByStatus(ctx context.Context, statuses []entities.TaskStatus) ([]entities.Task, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, title, description, type, priority, estimated_effort_hours, story_points, assignee_id, sprint_id, dependencies, status, created_at, updated_at
        FROM tasks WHERE status = ANY($1::text[]) ORDER BY created_at, id`, values)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *PostgresRepository) ListSprintTasks(ctx context.Context, sprintID string) ([]entities.Task, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title, description, type, priority, estimated_effort_hours, story_points, assignee_id, sprint_id, dependencies, status, created_at, updated_at
        FROM tasks WHERE sprint_id=$1 ORDER BY created_at, id`, sprintID)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *PostgresRepository) AssignTask(ctx context.Context, taskID, developerID string) (entities.Task, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE tasks SET assignee_id=$2, updated_at=now() WHERE id=$1`, taskID, developerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgFKViolation {
			return entities.Task{}, entities.ErrDeveloperNotFound
		}
		return entities.Task{}, err
	}
	if tag.RowsAffected() == 0 {
		return entities.Task{}, entities.ErrTaskNotFound
	}
	r.logger.Debug("task assigned", "task_id", taskID, "developer_id", developerID)
	return r.GetTask(ctx, taskID)
}

func (r *PostgresRepository) CreateSprint(ctx context.Context, draft entities.SprintDraft) (entities.Sprint, error) {
	id := uuid.NewString()
	r.logger.Debug("creating sprint", "id", id, "name", draft.Name)

	_, err := r.pool.Exec(ctx, `INSERT INTO sprints (id, name, start_date, end_date, status, capacity_hours, velocity_target)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		id, draft.Name, draft.StartDate, draft.EndDate, string(entities.SprintPlanned), draft.CapacityHours, draft.VelocityTarget,
	)
	if err != nil {
		r.logger.Error("failed to insert sprint", "name", draft.Name, "error", err)
		return entities.Sprint{}, err
	}
	return r.GetSprint(ctx, id)
}

func (r *PostgresRepository) GetSprint(ctx context.Context, sprintID string) (entities.Sprint, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, start_date, end_date, status, capacity_hours, velocity_target, created_at
        FROM sprints WHERE id=$1`, sprintID)

	var s entities.Sprint
	var status string
	err := row.Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &status, &s.CapacityHours, &s.VelocityTarget, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.Sprint{}, entities.ErrSprintNotFound
	}
	if err != nil {
		return entities.Sprint{}, err
	}
	s.Status = entities.SprintStatus(status)
	return s, nil
}

func (r *PostgresRepository) LinkTask(ctx context.Context, sprintID, taskID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tasks SET sprint_id=$1, updated_at=now() WHERE id=$2`, sprintID, taskID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgFKViolation {
			return entities.ErrSprintNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrTaskNotFound
	}
	return nil
}

func scanDeveloper(row pgx.Row) (entities.Developer, error) {
	var dev entities.Developer
	var preferred []string
	err := row.Scan(&dev.ID, &dev.Name, &dev.Velocity, &dev.Strengths, &preferred, &dev.CodeQuality, &dev.Collaboration, &dev.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.Developer{}, entities.ErrDeveloperNotFound
	}
	if err != nil {
		return entities.Developer{}, err
	}
	dev.PreferredTaskTypes = stringsToTaskTypes(preferred)
	return dev, nil
}

func scanTask(row pgx.Row) (entities.Task, error) {
	var t entities.Task
	var taskType, priority, status string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &taskType, &priority, &t.EstimatedEffortHours,
		&t.StoryPoints, &t.AssigneeID, &t.SprintID, &t.Dependencies, &status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.Task{}, entities.ErrTaskNotFound
	}
	if err != nil {
		return entities.Task{}, err
	}
	t.Type = entities.TaskType(taskType)
	t.Priority = entities.TaskPriority(priority)
	t.Status = entities.TaskStatus(status)
	return t, nil
}

func collectTasks(rows pgx.Rows) ([]entities.Task, error) {
	defer rows.Close()

	var tasks []entities.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func taskTypesToStrings(types []entities.TaskType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func stringsToTaskTypes(values []string) []entities.TaskType {
	out := make([]entities.TaskType, len(values))
	for i, v := range values {
		out[i] = entities.TaskType(v)
	}
	return out
}
