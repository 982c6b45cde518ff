package entities

type CapacityHealth string

const (
	HealthHealthy    CapacityHealth = "healthy"
	HealthAtRisk     CapacityHealth = "at-risk"
	HealthOverloaded CapacityHealth = "overloaded"
)

// DeveloperCapacity is derived per planning run and never persisted.
type DeveloperCapacity struct {
	DeveloperID          string
	Name                 string
	Velocity             float64
	AvailableHours       float64
	CurrentLoadHours     float64
	SkillMatch           float64
	RecommendedTaskCount int
}

// LoadPercent is the share of available hours already committed, in [0,∞).
func (dc DeveloperCapacity) LoadPercent() float64 {
	if dc.AvailableHours <= 0 {
		if dc.CurrentLoadHours > 0 {
			return 100
		}
		return 0
	}
	return dc.CurrentLoadHours / dc.AvailableHours * 100
}

type CapacityPlan struct {
	TotalCapacity     float64
	AvailableCapacity float64
	TeamVelocity      float64
	Developers        []DeveloperCapacity
	Health            CapacityHealth
	Recommendations   []Recommendation
}

type RecommendationType string

const (
	RecommendationWarning      RecommendationType = "warning"
	RecommendationSuggestion   RecommendationType = "suggestion"
	RecommendationOptimization RecommendationType = "optimization"
)

type RecommendationPriority string

const (
	RecommendationLow    RecommendationPriority = "low"
	RecommendationMedium RecommendationPriority = "medium"
	RecommendationHigh   RecommendationPriority = "high"
)

type Recommendation struct {
	Type     RecommendationType
	Message  string
	Action   string
	Priority RecommendationPriority
}

type VelocityTrend string

const (
	TrendIncreasing VelocityTrend = "increasing"
	TrendDecreasing VelocityTrend = "decreasing"
	TrendStable     VelocityTrend = "stable"
)

type VelocityForecast struct {
	CurrentVelocity   float64
	AverageVelocity   float64
	Trend             VelocityTrend
	PredictedVelocity float64
	Confidence        float64
}

type PredictionFactor struct {
	Name         string
	Score        float64
	Weight       float64
	Contribution float64
}

type SuccessPrediction struct {
	Probability int
	Factors     []PredictionFactor
	Suggestions []string
}
