package capacity

import (
	"fmt"

	"github.com/planforge/sprint-planner/internal/entities"
)

const (
	devOverloadedPct  = 90
	devSparePct       = 50
	varianceRatio     = 0.5
	minSkillAlignment = 0.6
)

// Recommend evaluates all advisory rules over a set of developer capacities.
// Rules are independent; several can fire at once. Per-developer findings come
// first, team-level findings after.
func Recommend(developers []entities.DeveloperCapacity) []entities.Recommendation {
	var recs []entities.Recommendation

	for _, dc := range developers {
		pct := dc.LoadPercent()
		if pct > devOverloadedPct {
			recs = append(recs, entities.Recommendation{
				Type:     entities.RecommendationWarning,
				Message:  fmt.Sprintf("%s is overloaded at %.0f%% of available capacity", dc.Name, pct),
				Action:   "Reassign tasks to other developers or extend the timeline",
				Priority: entities.RecommendationHigh,
			})
		}
		if pct < devSparePct {
			recs = append(recs, entities.Recommendation{
				Type:     entities.RecommendationSuggestion,
				Message:  fmt.Sprintf("%s has spare capacity at %.0f%% load", dc.Name, pct),
				Action:   "Assign additional tasks from the backlog",
				Priority: entities.RecommendationMedium,
			})
		}
	}

	if velocityUnbalanced(developers) {
		recs = append(recs, entities.Recommendation{
			Type:     entities.RecommendationOptimization,
			Message:  "Team velocity is unbalanced across developers",
			Action:   "Pair high-velocity developers with others to spread knowledge",
			Priority: entities.RecommendationMedium,
		})
	}

	if lowSkillAlignment(developers) {
		recs = append(recs, entities.Recommendation{
			Type:     entities.RecommendationSuggestion,
			Message:  "Overall skill-task alignment is low",
			Action:   "Review the backlog against developer strengths before assigning",
			Priority: entities.RecommendationMedium,
		})
	}

	return recs
}

func velocityUnbalanced(developers []entities.DeveloperCapacity) bool {
	if len(developers) < 2 {
		return false
	}
	var sum float64
	for _, dc := range developers {
		sum += dc.Velocity
	}
	m := sum / float64(len(developers))
	if m <= 0 {
		return false
	}
	var variance float64
	for _, dc := range developers {
		d := dc.Velocity - m
		variance += d * d
	}
	variance /= float64(len(developers))
	return variance > varianceRatio*m
}

func lowSkillAlignment(developers []entities.DeveloperCapacity) bool {
	if len(developers) == 0 {
		return false
	}
	var sum float64
	for _, dc := range developers {
		sum += dc.SkillMatch
	}
	return sum/float64(len(developers)) < minSkillAlignment
}
