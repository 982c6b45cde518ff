package prediction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/sprint-planner/internal/entities"
)

func healthyPlan(skillMatch float64) entities.CapacityPlan {
	return entities.CapacityPlan{
		Health: entities.HealthHealthy,
		Developers: []entities.DeveloperCapacity{
			{DeveloperID: "d1", SkillMatch: skillMatch},
		},
	}
}

func smallTask(id string, effort float64, deps ...string) entities.Task {
	return entities.Task{
		ID:                   id,
		Priority:             entities.PriorityMedium,
		Type:                 entities.TaskTypeFeature,
		EstimatedEffortHours: effort,
		Dependencies:         deps,
		Status:               entities.StatusTodo,
	}
}

func TestPredict_WeightsSumToProbability(t *testing.T) {
	pred := New()

	result := pred.Predict(healthyPlan(1), []entities.Task{smallTask("t1", 4)}, nil)

	// 0.25×85 + 0.20×90 + 0.20×75 + 0.15×100 + 0.20×100 = 89.25 → 89
	assert.Equal(t, 89, result.Probability)
	require.Len(t, result.Factors, 5)
	var sum float64
	for _, f := range result.Factors {
		sum += f.Weight
	}
	assert.InDelta(t, 1.0, sum, 0.0001)
}

func TestPredict_ProbabilityAlwaysInRange(t *testing.T) {
	pred := New()

	plans := []entities.CapacityPlan{
		healthyPlan(0),
		{Health: entities.HealthOverloaded, Developers: []entities.DeveloperCapacity{{SkillMatch: 0}}},
		{Health: entities.HealthAtRisk},
	}
	taskSets := [][]entities.Task{
		nil,
		{smallTask("t1", 50, "t0"), smallTask("t2", 80, "t1")},
		{smallTask("t1", 1)},
	}
	histories := [][]float64{nil, {1, 40, 2, 39, 1}, {10, 10, 10}}

	for _, plan := range plans {
		for _, tasks := range taskSets {
			for _, history := range histories {
				result := pred.Predict(plan, tasks, history)
				assert.GreaterOrEqual(t, result.Probability, 0)
				assert.LessOrEqual(t, result.Probability, 100)
			}
		}
	}
}

func TestPredict_DefaultsWithoutHistory(t *testing.T) {
	pred := New()

	result := pred.Predict(healthyPlan(1), nil, nil)

	for _, f := range result.Factors {
		if f.Name == "velocity consistency" {
			assert.InDelta(t, 75, f.Score, 0.001)
			return
		}
	}
	t.Fatal("velocity consistency factor missing")
}

func TestPredict_ComplexityBuckets(t *testing.T) {
	pred := New()

	cases := []struct {
		effort float64
		want   float64
	}{
		{4, 90},
		{8, 75},
		{15, 60},
		{30, 45},
	}
	for _, tc := range cases {
		result := pred.Predict(healthyPlan(1), []entities.Task{smallTask("t1", tc.effort)}, nil)
		found := false
		for _, f := range result.Factors {
			if f.Name == "complexity" {
				assert.InDelta(t, tc.want, f.Score, 0.001)
				found = true
			}
		}
		require.True(t, found)
	}
}

func TestPredict_LowProbabilitySuggestsScopeReduction(t *testing.T) {
	pred := New()
	plan := entities.CapacityPlan{
		Health:     entities.HealthOverloaded,
		Developers: []entities.DeveloperCapacity{{SkillMatch: 0.1}},
	}
	tasks := []entities.Task{
		smallTask("t1", 30, "t0"),
		smallTask("t2", 25, "t1"),
	}

	result := pred.Predict(plan, tasks, nil)

	require.Less(t, result.Probability, 60)
	joined := strings.Join(result.Suggestions, "\n")
	assert.Contains(t, joined, "Reduce sprint scope")
	assert.Contains(t, joined, "weakest signal")
}

func TestPredict_WeakFactorGetsImprovementSuggestion(t *testing.T) {
	pred := New()
	plan := entities.CapacityPlan{
		Health:     entities.HealthOverloaded, // contribution 0.25×40 = 10 < 15
		Developers: []entities.DeveloperCapacity{{SkillMatch: 1}},
	}

	result := pred.Predict(plan, []entities.Task{smallTask("t1", 4)}, nil)

	joined := strings.Join(result.Suggestions, "\n")
	assert.Contains(t, joined, "Improve utilization")
}

func TestPredict_HighProbabilityAffirms(t *testing.T) {
	pred := New()

	result := pred.Predict(healthyPlan(1), []entities.Task{smallTask("t1", 3)}, []float64{10, 10, 10, 10})

	require.Greater(t, result.Probability, 80)
	joined := strings.Join(result.Suggestions, "\n")
	assert.Contains(t, joined, "keep the current approach")
}
