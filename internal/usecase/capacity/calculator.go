package capacity

import (
	"fmt"
	"math"
	"strings"

	"github.com/planforge/sprint-planner/internal/entities"
	"github.com/planforge/sprint-planner/pkg/logger"
)

// Calculator computes a team capacity snapshot from in-memory developer and
// task lists. It holds no state; every call recomputes from scratch.
type Calculator interface {
	Compute(developers []entities.Developer, tasks []entities.Task, opts Options) (entities.CapacityPlan, error)
}

type Options struct {
	SprintDurationDays int
	BufferPercentage   float64
}

const (
	hoursPerDay         = 8
	defaultSprintDays   = 10
	nominalTaskHours    = 8
	overloadedThreshold = 95
	atRiskThreshold     = 80

	preferredTypeScore = 0.5
	strengthMatchScore = 0.1
	maxStrengthBonus   = 0.5
	vacuousSkillMatch  = 1.0
)

type calculator struct {
	logger logger.Logger
}

func NewCalculator(log logger.Logger) Calculator {
	return &calculator{logger: log}
}

func (c *calculator) Compute(developers []entities.Developer, tasks []entities.Task, opts Options) (entities.CapacityPlan, error) {
	if len(developers) == 0 {
		return entities.CapacityPlan{}, entities.ErrNoDevelopers
	}
	if opts.BufferPercentage < 0 || opts.BufferPercentage > 100 {
		return entities.CapacityPlan{}, fmt.Errorf("buffer percentage %v out of range [0,100]", opts.BufferPercentage)
	}
	for _, t := range tasks {
		if t.EstimatedEffortHours <= 0 {
			return entities.CapacityPlan{}, fmt.Errorf("task %s: %w", t.ID, entities.ErrInvalidEffort)
		}
	}

	days := opts.SprintDurationDays
	if days <= 0 {
		days = defaultSprintDays
	}
	baseHours := float64(days * hoursPerDay)
	availableHours := baseHours * (1 - opts.BufferPercentage/100)

	unassigned := unassignedTasks(tasks)

	plan := entities.CapacityPlan{Developers: make([]entities.DeveloperCapacity, 0, len(developers))}
	var totalLoad float64
	for _, dev := range developers {
		load := currentLoad(dev.ID, tasks)
		dc := entities.DeveloperCapacity{
			DeveloperID:          dev.ID,
			Name:                 dev.Name,
			Velocity:             dev.Velocity,
			AvailableHours:       availableHours,
			CurrentLoadHours:     load,
			SkillMatch:           skillMatch(dev, unassigned),
			RecommendedTaskCount: recommendedTaskCount(availableHours, load),
		}
		plan.Developers = append(plan.Developers, dc)
		plan.TotalCapacity += dc.AvailableHours
		plan.TeamVelocity += dev.Velocity
		totalLoad += load
	}

	plan.AvailableCapacity = math.Max(0, plan.TotalCapacity-totalLoad)
	plan.Health = classifyHealth(plan.TotalCapacity, totalLoad)
	plan.Recommendations = Recommend(plan.Developers)

	c.logger.Debug("capacity plan computed",
		"developers", len(plan.Developers),
		"total_capacity", plan.TotalCapacity,
		"health", plan.Health,
	)
	return plan, nil
}

func unassignedTasks(tasks []entities.Task) []entities.Task {
	var out []entities.Task
	for _, t := range tasks {
		if t.AssigneeID == nil && t.Status == entities.StatusTodo {
			out = append(out, t)
		}
	}
	return out
}

func currentLoad(developerID string, tasks []entities.Task) float64 {
	var load float64
	for _, t := range tasks {
		if t.AssignedTo(developerID) && t.CountsTowardLoad() {
			load += t.EstimatedEffortHours
		}
	}
	return load
}

// skillMatch scores how well a developer fits the pool of unassigned work:
// 0.5 for a preferred task type plus 0.1 per strength found in the task text,
// capped at 0.5, averaged over all unassigned tasks. No unassigned work means
// a vacuous perfect match.
func skillMatch(dev entities.Developer, unassigned []entities.Task) float64 {
	if len(unassigned) == 0 {
		return vacuousSkillMatch
	}
	var total float64
	for _, t := range unassigned {
		score := 0.0
		if dev.Prefers(t.Type) {
			score += preferredTypeScore
		}
		text := strings.ToLower(t.Title + " " + t.Description)
		matches := 0
		for _, s := range dev.Strengths {
			if s != "" && strings.Contains(text, strings.ToLower(s)) {
				matches++
			}
		}
		score += math.Min(maxStrengthBonus, strengthMatchScore*float64(matches))
		total += score
	}
	return total / float64(len(unassigned))
}

func recommendedTaskCount(availableHours, currentLoadHours float64) int {
	remaining := availableHours - currentLoadHours
	if remaining <= 0 {
		return 0
	}
	return int(remaining / nominalTaskHours)
}

func classifyHealth(totalCapacity, totalLoad float64) entities.CapacityHealth {
	if totalCapacity <= 0 {
		if totalLoad > 0 {
			return entities.HealthOverloaded
		}
		return entities.HealthHealthy
	}
	pct := totalLoad / totalCapacity * 100
	switch {
	case pct > overloadedThreshold:
		return entities.HealthOverloaded
	case pct > atRiskThreshold:
		return entities.HealthAtRisk
	default:
		return entities.HealthHealthy
	}
}
