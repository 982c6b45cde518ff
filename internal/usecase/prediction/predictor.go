package prediction

import (
	"fmt"
	"math"

	"github.com/planforge/sprint-planner/internal/entities"
)

// Predictor combines five weighted signals into a 0-100 sprint success
// probability with a per-factor breakdown. Pure computation over the
// supplied snapshot; missing history falls back to documented defaults.
type Predictor interface {
	Predict(plan entities.CapacityPlan, tasks []entities.Task, velocityHistory []float64) entities.SuccessPrediction
}

const (
	utilizationWeight = 0.25
	complexityWeight  = 0.20
	consistencyWeight = 0.20
	skillWeight       = 0.15
	dependencyWeight  = 0.20

	defaultConsistency = 75

	lowProbability   = 60
	highProbability  = 80
	weakContribution = 15
)

type predictor struct{}

func New() Predictor {
	return &predictor{}
}

func (p *predictor) Predict(plan entities.CapacityPlan, tasks []entities.Task, velocityHistory []float64) entities.SuccessPrediction {
	factors := []entities.PredictionFactor{
		{Name: "utilization", Weight: utilizationWeight, Score: utilizationScore(plan.Health)},
		{Name: "complexity", Weight: complexityWeight, Score: complexityScore(tasks)},
		{Name: "velocity consistency", Weight: consistencyWeight, Score: consistencyScore(velocityHistory)},
		{Name: "skill alignment", Weight: skillWeight, Score: skillScore(plan.Developers)},
		{Name: "dependency risk", Weight: dependencyWeight, Score: dependencyScore(tasks)},
	}

	var weighted float64
	for i := range factors {
		factors[i].Contribution = factors[i].Weight * factors[i].Score
		weighted += factors[i].Contribution
	}

	probability := int(math.Round(weighted))
	if probability < 0 {
		probability = 0
	}
	if probability > 100 {
		probability = 100
	}

	return entities.SuccessPrediction{
		Probability: probability,
		Factors:     factors,
		Suggestions: suggestions(probability, factors),
	}
}

func utilizationScore(health entities.CapacityHealth) float64 {
	switch health {
	case entities.HealthHealthy:
		return 85
	case entities.HealthAtRisk:
		return 65
	case entities.HealthOverloaded:
		return 40
	default:
		return 65
	}
}

func complexityScore(tasks []entities.Task) float64 {
	if len(tasks) == 0 {
		return 90
	}
	var sum float64
	for _, t := range tasks {
		sum += t.EstimatedEffortHours
	}
	switch avg := sum / float64(len(tasks)); {
	case avg < 5:
		return 90
	case avg < 10:
		return 75
	case avg < 20:
		return 60
	default:
		return 45
	}
}

func consistencyScore(history []float64) float64 {
	if len(history) < 3 {
		return defaultConsistency
	}
	var sum float64
	for _, v := range history {
		sum += v
	}
	m := sum / float64(len(history))
	if m <= 0 {
		return defaultConsistency
	}
	var variance float64
	for _, v := range history {
		d := v - m
		variance += d * d
	}
	variance /= float64(len(history))
	cv := math.Sqrt(variance) / m
	return math.Max(0, math.Min(100, 100*(1-cv)))
}

func skillScore(developers []entities.DeveloperCapacity) float64 {
	if len(developers) == 0 {
		return 0
	}
	var sum float64
	for _, dc := range developers {
		sum += dc.SkillMatch
	}
	return 100 * sum / float64(len(developers))
}

func dependencyScore(tasks []entities.Task) float64 {
	if len(tasks) == 0 {
		return 100
	}
	withDeps := 0
	for _, t := range tasks {
		if len(t.Dependencies) > 0 {
			withDeps++
		}
	}
	return 100 * (1 - float64(withDeps)/float64(len(tasks)))
}

func suggestions(probability int, factors []entities.PredictionFactor) []string {
	var out []string

	if probability < lowProbability {
		out = append(out, "Reduce sprint scope to match the team's realistic capacity")
		weakest := factors[0]
		for _, f := range factors[1:] {
			if f.Contribution < weakest.Contribution {
				weakest = f
			}
		}
		out = append(out, fmt.Sprintf("Focus on %s first, it is the weakest signal", weakest.Name))
	}

	for _, f := range factors {
		if f.Contribution < weakContribution {
			out = append(out, improvementFor(f.Name))
		}
	}

	if probability > highProbability {
		out = append(out, "The plan looks solid; keep the current approach")
	}

	return out
}

func improvementFor(factor string) string {
	switch factor {
	case "utilization":
		return "Improve utilization: rebalance workload before the sprint starts"
	case "complexity":
		return "Improve complexity: split large tasks into smaller deliverables"
	case "velocity consistency":
		return "Improve velocity consistency: stabilize sprint scope between iterations"
	case "skill alignment":
		return "Improve skill alignment: match tasks to developer strengths"
	case "dependency risk":
		return "Improve dependency risk: resolve or decouple blocking dependencies"
	default:
		return fmt.Sprintf("Improve %s", factor)
	}
}
