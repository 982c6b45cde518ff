package assignment

import (
	"context"
	"math"
	"sort"

	"github.com/planforge/sprint-planner/internal/entities"
	"github.com/planforge/sprint-planner/internal/repository"
	"github.com/planforge/sprint-planner/pkg/logger"
)

// Engine greedily assigns unassigned tasks to the best-fitting developers
// under capacity and skill constraints. It mutates the working copy of the
// capacity plan it is given and persists each assignment through the task
// repository, recording per-item outcomes.
type Engine interface {
	Assign(ctx context.Context, unassigned []entities.Task, plan *entities.CapacityPlan) (AssignResult, error)
}

type Decision struct {
	TaskID      string
	DeveloperID string
	Score       float64
	Reason      string
}

type Failure struct {
	TaskID string
	Err    error
}

type AssignResult struct {
	AssignedCount int
	Decisions     []Decision
	Failures      []Failure
}

const (
	loadWeight     = 0.4
	skillWeight    = 0.4
	velocityWeight = 0.2
	velocityScale  = 10
)

type engine struct {
	taskRepo repository.TaskRepository
	logger   logger.Logger
}

func NewEngine(taskRepo repository.TaskRepository, log logger.Logger) Engine {
	return &engine{taskRepo: taskRepo, logger: log}
}

func (e *engine) Assign(ctx context.Context, unassigned []entities.Task, plan *entities.CapacityPlan) (AssignResult, error) {
	var result AssignResult

	for _, task := range SortForAssignment(unassigned) {
		best := -1
		var bestScore float64
		for i := range plan.Developers {
			dc := &plan.Developers[i]
			if dc.CurrentLoadHours+task.EstimatedEffortHours > dc.AvailableHours {
				continue
			}
			score := fitScore(dc)
			// First-seen wins ties, keeping the run deterministic.
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}

		if best == -1 {
			result.Decisions = append(result.Decisions, Decision{
				TaskID: task.ID,
				Reason: "no developer with enough remaining capacity",
			})
			continue
		}

		winner := &plan.Developers[best]
		if _, err := e.taskRepo.AssignTask(ctx, task.ID, winner.DeveloperID); err != nil {
			e.logger.Error("task assignment failed", "task_id", task.ID, "developer_id", winner.DeveloperID, "error", err)
			result.Failures = append(result.Failures, Failure{
				TaskID: task.ID,
				Err:    &entities.PersistenceError{TaskID: task.ID, Err: err},
			})
			continue
		}

		winner.CurrentLoadHours += task.EstimatedEffortHours
		result.AssignedCount++
		result.Decisions = append(result.Decisions, Decision{
			TaskID:      task.ID,
			DeveloperID: winner.DeveloperID,
			Score:       bestScore,
			Reason:      "best fit by load, skill and velocity",
		})
		e.logger.Debug("task assigned", "task_id", task.ID, "developer_id", winner.DeveloperID, "score", bestScore)
	}

	return result, nil
}

// fitScore blends remaining headroom, skill match and normalized velocity.
func fitScore(dc *entities.DeveloperCapacity) float64 {
	headroom := 0.0
	if dc.AvailableHours > 0 {
		headroom = 1 - dc.CurrentLoadHours/dc.AvailableHours
	}
	return loadWeight*headroom +
		skillWeight*dc.SkillMatch +
		velocityWeight*math.Min(1, dc.Velocity/velocityScale)
}

// SortForAssignment orders tasks by priority weight descending, then by
// estimated effort ascending. The sort is stable so equal tasks keep their
// input order.
func SortForAssignment(tasks []entities.Task) []entities.Task {
	sorted := append([]entities.Task(nil), tasks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		wi, wj := sorted[i].Priority.Weight(), sorted[j].Priority.Weight()
		if wi != wj {
			return wi > wj
		}
		return sorted[i].EstimatedEffortHours < sorted[j].EstimatedEffortHours
	})
	return sorted
}
