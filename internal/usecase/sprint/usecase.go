package sprint

import (
	"context"
	"fmt"
	"time"

	"github.com/planforge/sprint-planner/internal/entities"
	"github.com/planforge/sprint-planner/internal/repository"
	"github.com/planforge/sprint-planner/internal/usecase/assignment"
	"github.com/planforge/sprint-planner/internal/usecase/capacity"
	"github.com/planforge/sprint-planner/internal/usecase/prediction"
	"github.com/planforge/sprint-planner/internal/usecase/velocity"
	"github.com/planforge/sprint-planner/pkg/logger"
)

const (
	velocityHistoryLimit = 12
	staleBlockerAfter    = 72 * time.Hour
	largeTaskHours       = 20
	celebrationThreshold = 90
)

type useCase struct {
	developerRepo repository.DeveloperRepository
	taskRepo      repository.TaskRepository
	sprintRepo    repository.SprintRepository
	calculator    capacity.Calculator
	engine        assignment.Engine
	balancer      assignment.Balancer
	estimator     velocity.Estimator
	predictor     prediction.Predictor
	logger        logger.Logger
	now           func() time.Time
}

func New(repo repository.Repository, log logger.Logger) UseCase {
	return &useCase{
		developerRepo: repo,
		taskRepo:      repo,
		sprintRepo:    repo,
		calculator:    capacity.NewCalculator(log),
		engine:        assignment.NewEngine(repo, log),
		balancer:      assignment.NewBalancer(repo, log),
		estimator:     velocity.New(),
		predictor:     prediction.New(),
		logger:        log,
		now:           time.Now,
	}
}

func (u *useCase) ComputeCapacity(ctx context.Context, opts capacity.Options) (entities.CapacityPlan, error) {
	developers, tasks, err := u.loadSnapshot(ctx)
	if err != nil {
		return entities.CapacityPlan{}, err
	}
	return u.calculator.Compute(developers, tasks, opts)
}

func (u *useCase) CreateOptimizedSprint(ctx context.Context, input CreateSprintInput) (PlanResult, error) {
	if input.Name == "" {
		return PlanResult{}, fmt.Errorf("sprint name required")
	}
	if !input.EndDate.After(input.StartDate) {
		return PlanResult{}, entities.ErrInvalidDates
	}

	u.logger.Info("planning sprint", "name", input.Name, "auto_assign", input.AutoAssign)

	developers, tasks, err := u.loadSnapshot(ctx)
	if err != nil {
		return PlanResult{}, err
	}

	plan, err := u.calculator.Compute(developers, tasks, input.Options)
	if err != nil {
		return PlanResult{}, err
	}

	created, err := u.sprintRepo.CreateSprint(ctx, entities.SprintDraft{
		Name:           input.Name,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		CapacityHours:  plan.TotalCapacity,
		VelocityTarget: plan.TeamVelocity,
	})
	if err != nil {
		return PlanResult{}, err
	}

	selected := selectForSprint(tasks, plan.AvailableCapacity, input.Options.BufferPercentage)

	result := PlanResult{Sprint: created, Plan: plan}
	for _, t := range selected {
		if err := u.sprintRepo.LinkTask(ctx, created.ID, t.ID); err != nil {
			u.logger.Error("failed to link task to sprint", "sprint_id", created.ID, "task_id", t.ID, "error", err)
			result.Failures = append(result.Failures, assignment.Failure{
				TaskID: t.ID,
				Err:    &entities.PersistenceError{TaskID: t.ID, Err: err},
			})
			continue
		}
		result.LinkedTaskIDs = append(result.LinkedTaskIDs, t.ID)
	}

	if input.AutoAssign {
		assignRes, err := u.engine.Assign(ctx, selected, &result.Plan)
		if err != nil {
			return PlanResult{}, err
		}
		result.AssignedCount = assignRes.AssignedCount
		result.Failures = append(result.Failures, assignRes.Failures...)
	}

	history := u.teamVelocityHistory(ctx)
	result.Prediction = u.predictor.Predict(result.Plan, selected, history)

	u.logger.Info("sprint planned",
		"sprint_id", created.ID,
		"linked_tasks", len(result.LinkedTaskIDs),
		"assigned", result.AssignedCount,
		"probability", result.Prediction.Probability,
	)
	return result, nil
}

func (u *useCase) RebalanceSprint(ctx context.Context, sprintID string, opts capacity.Options) (assignment.BalanceResult, error) {
	if sprintID == "" {
		return assignment.BalanceResult{}, fmt.Errorf("sprint id required")
	}
	if _, err := u.sprintRepo.GetSprint(ctx, sprintID); err != nil {
		return assignment.BalanceResult{}, err
	}

	developers, tasks, err := u.loadSnapshot(ctx)
	if err != nil {
		return assignment.BalanceResult{}, err
	}
	plan, err := u.calculator.Compute(developers, tasks, opts)
	if err != nil {
		return assignment.BalanceResult{}, err
	}

	sprintTasks, err := u.taskRepo.ListSprintTasks(ctx, sprintID)
	if err != nil {
		return assignment.BalanceResult{}, err
	}

	return u.balancer.Rebalance(ctx, &plan, sprintTasks)
}

func (u *useCase) GenerateRetrospective(ctx context.Context, sprintID string) (entities.Retrospective, error) {
	if sprintID == "" {
		return entities.Retrospective{}, fmt.Errorf("sprint id required")
	}

	sprint, err := u.sprintRepo.GetSprint(ctx, sprintID)
	if err != nil {
		return entities.Retrospective{}, err
	}

	tasks, err := u.taskRepo.ListSprintTasks(ctx, sprint.ID)
	if err != nil {
		return entities.Retrospective{}, err
	}

	retro := entities.Retrospective{SprintID: sprint.ID}

	done := 0
	for _, t := range tasks {
		if t.Status == entities.StatusDone {
			done++
			retro.VelocityAchieved += t.StoryPoints
		}
	}
	if len(tasks) > 0 {
		retro.CompletionRate = float64(done) / float64(len(tasks)) * 100
	}

	retro.Performance = u.developerPerformance(ctx, tasks)
	retro.Blockers = u.detectBlockers(tasks)
	retro.Improvements, retro.Celebrations = retroNotes(retro.CompletionRate)

	u.recordAchievedVelocity(ctx, sprint.ID, retro.Performance)

	u.logger.Info("retrospective generated",
		"sprint_id", sprint.ID,
		"completion_rate", retro.CompletionRate,
		"velocity_achieved", retro.VelocityAchieved,
	)
	return retro, nil
}

func (u *useCase) ForecastVelocity(ctx context.Context) (entities.VelocityForecast, error) {
	history, err := u.developerRepo.ListTeamVelocity(ctx, velocityHistoryLimit)
	if err != nil {
		return entities.VelocityForecast{}, err
	}
	return u.estimator.Estimate(history), nil
}

func (u *useCase) loadSnapshot(ctx context.Context) ([]entities.Developer, []entities.Task, error) {
	developers, err := u.developerRepo.ListActiveDevelopers(ctx)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := u.taskRepo.ListTasksByStatus(ctx, []entities.TaskStatus{entities.StatusTodo, entities.StatusInProgress})
	if err != nil {
		return nil, nil, err
	}
	return developers, tasks, nil
}

// selectForSprint greedily fills the sprint with unassigned backlog tasks,
// highest priority and smallest effort first, up to the buffered budget.
func selectForSprint(tasks []entities.Task, availableCapacity, bufferPercentage float64) []entities.Task {
	var backlog []entities.Task
	for _, t := range tasks {
		if t.AssigneeID == nil && t.Status == entities.StatusTodo && t.SprintID == nil {
			backlog = append(backlog, t)
		}
	}

	budget := availableCapacity * (1 - bufferPercentage/100)
	var selected []entities.Task
	var used float64
	for _, t := range assignment.SortForAssignment(backlog) {
		if used+t.EstimatedEffortHours > budget {
			continue
		}
		selected = append(selected, t)
		used += t.EstimatedEffortHours
	}
	return selected
}

func (u *useCase) developerPerformance(ctx context.Context, tasks []entities.Task) []entities.DeveloperPerformance {
	var order []string
	byDev := map[string]*entities.DeveloperPerformance{}

	for _, t := range tasks {
		if t.Status != entities.StatusDone || t.AssigneeID == nil {
			continue
		}
		id := *t.AssigneeID
		perf, ok := byDev[id]
		if !ok {
			perf = &entities.DeveloperPerformance{DeveloperID: id, Name: id}
			if dev, err := u.developerRepo.GetDeveloper(ctx, id); err == nil {
				perf.Name = dev.Name
			}
			byDev[id] = perf
			order = append(order, id)
		}
		perf.CompletedTasks++
		perf.CompletedHours += t.EstimatedEffortHours
		perf.StoryPoints += t.StoryPoints
	}

	out := make([]entities.DeveloperPerformance, 0, len(order))
	for _, id := range order {
		out = append(out, *byDev[id])
	}
	return out
}

func (u *useCase) detectBlockers(tasks []entities.Task) []string {
	var blockers []string
	now := u.now()
	for _, t := range tasks {
		if t.Status != entities.StatusInProgress {
			continue
		}
		if !t.UpdatedAt.IsZero() && now.Sub(t.UpdatedAt) > staleBlockerAfter {
			days := int(now.Sub(t.UpdatedAt).Hours() / 24)
			blockers = append(blockers, fmt.Sprintf("%q has been in progress without updates for %d days", t.Title, days))
			continue
		}
		if t.EstimatedEffortHours > largeTaskHours {
			blockers = append(blockers, fmt.Sprintf("%q is a large task (%.0fh); consider splitting it", t.Title, t.EstimatedEffortHours))
		}
	}
	return blockers
}

func retroNotes(completionRate float64) (improvements, celebrations []string) {
	if completionRate >= celebrationThreshold {
		celebrations = []string{
			"Outstanding delivery: over 90% of committed work shipped",
			"Estimates held up; the planning cadence is working",
		}
		improvements = []string{
			"Keep scope discipline; the current cadence works",
		}
		return improvements, celebrations
	}
	improvements = []string{
		"Reduce committed scope to match actual velocity",
		"Break large tasks into smaller deliverables before committing",
	}
	celebrations = []string{
		"Completed work still moved the sprint goal forward",
	}
	return improvements, celebrations
}

func (u *useCase) recordAchievedVelocity(ctx context.Context, sprintID string, performance []entities.DeveloperPerformance) {
	for _, perf := range performance {
		if err := u.developerRepo.RecordVelocity(ctx, sprintID, perf.DeveloperID, perf.StoryPoints); err != nil {
			u.logger.Error("failed to record velocity", "sprint_id", sprintID, "developer_id", perf.DeveloperID, "error", err)
		}
	}
}

func (u *useCase) teamVelocityHistory(ctx context.Context) []float64 {
	history, err := u.developerRepo.ListTeamVelocity(ctx, velocityHistoryLimit)
	if err != nil {
		// Prediction falls back to defaults on missing history.
		u.logger.Error("failed to load velocity history", "error", err)
		return nil
	}
	return history
}
