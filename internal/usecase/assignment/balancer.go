package assignment

import (
	"context"
	"fmt"
	"sort"

	"github.com/planforge/sprint-planner/internal/entities"
	"github.com/planforge/sprint-planner/internal/repository"
	"github.com/planforge/sprint-planner/pkg/logger"
)

// Balancer redistributes tasks from overloaded to underloaded developers
// after assignment. Single-pass greedy: it moves the smallest tasks first and
// never backtracks, so the result is balanced, not globally optimal.
type Balancer interface {
	Rebalance(ctx context.Context, plan *entities.CapacityPlan, tasks []entities.Task) (BalanceResult, error)
}

type Move struct {
	TaskID          string
	FromDeveloperID string
	ToDeveloperID   string
	EffortHours     float64
}

type BalanceResult struct {
	Moves           []Move
	Recommendations []string
	Failures        []Failure
}

const (
	overloadedPct  = 90
	underloadedPct = 70
	settledPct     = 85
)

type balancer struct {
	taskRepo repository.TaskRepository
	logger   logger.Logger
}

func NewBalancer(taskRepo repository.TaskRepository, log logger.Logger) Balancer {
	return &balancer{taskRepo: taskRepo, logger: log}
}

func (b *balancer) Rebalance(ctx context.Context, plan *entities.CapacityPlan, tasks []entities.Task) (BalanceResult, error) {
	var result BalanceResult

	for i := range plan.Developers {
		src := &plan.Developers[i]
		if src.LoadPercent() <= overloadedPct {
			continue
		}

		for _, task := range movableTasks(src.DeveloperID, tasks) {
			if src.LoadPercent() <= settledPct {
				break
			}

			dst := findTarget(plan, i, task.EstimatedEffortHours)
			if dst == nil {
				continue
			}

			if _, err := b.taskRepo.AssignTask(ctx, task.ID, dst.DeveloperID); err != nil {
				b.logger.Error("rebalance move failed", "task_id", task.ID, "to", dst.DeveloperID, "error", err)
				result.Failures = append(result.Failures, Failure{
					TaskID: task.ID,
					Err:    &entities.PersistenceError{TaskID: task.ID, Err: err},
				})
				continue
			}

			src.CurrentLoadHours -= task.EstimatedEffortHours
			dst.CurrentLoadHours += task.EstimatedEffortHours
			result.Moves = append(result.Moves, Move{
				TaskID:          task.ID,
				FromDeveloperID: src.DeveloperID,
				ToDeveloperID:   dst.DeveloperID,
				EffortHours:     task.EstimatedEffortHours,
			})
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("Moved %q (%.0fh) from %s to %s", task.Title, task.EstimatedEffortHours, src.Name, dst.Name))
			b.logger.Info("task rebalanced", "task_id", task.ID, "from", src.DeveloperID, "to", dst.DeveloperID)
		}
	}

	return result, nil
}

// movableTasks returns the developer's active tasks, smallest effort first.
func movableTasks(developerID string, tasks []entities.Task) []entities.Task {
	var own []entities.Task
	for _, t := range tasks {
		if t.AssignedTo(developerID) && t.CountsTowardLoad() {
			own = append(own, t)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].EstimatedEffortHours < own[j].EstimatedEffortHours
	})
	return own
}

// findTarget picks the first underloaded developer that can absorb the effort.
func findTarget(plan *entities.CapacityPlan, srcIdx int, effort float64) *entities.DeveloperCapacity {
	for j := range plan.Developers {
		if j == srcIdx {
			continue
		}
		dst := &plan.Developers[j]
		if dst.LoadPercent() >= underloadedPct {
			continue
		}
		if dst.CurrentLoadHours+effort > dst.AvailableHours {
			continue
		}
		return dst
	}
	return nil
}
