package sprint

import (
	"context"
	"time"

	"github.com/planforge/sprint-planner/internal/entities"
	"github.com/planforge/sprint-planner/internal/usecase/assignment"
	"github.com/planforge/sprint-planner/internal/usecase/capacity"
)

// UseCase composes the planning engine end to end: capacity calculation,
// task selection, assignment, rebalancing, success prediction and
// retrospective generation.
type UseCase interface {
	ComputeCapacity(ctx context.Context, opts capacity.Options) (entities.CapacityPlan, error)
	CreateOptimizedSprint(ctx context.Context, input CreateSprintInput) (PlanResult, error)
	RebalanceSprint(ctx context.Context, sprintID string, opts capacity.Options) (assignment.BalanceResult, error)
	GenerateRetrospective(ctx context.Context, sprintID string) (entities.Retrospective, error)
	ForecastVelocity(ctx context.Context) (entities.VelocityForecast, error)
}

type CreateSprintInput struct {
	Name       string
	StartDate  time.Time
	EndDate    time.Time
	Options    capacity.Options
	AutoAssign bool
}

type PlanResult struct {
	Sprint        entities.Sprint
	Plan          entities.CapacityPlan
	Prediction    entities.SuccessPrediction
	AssignedCount int
	LinkedTaskIDs []string
	Failures      []assignment.Failure
}
