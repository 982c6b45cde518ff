package entities

import "time"

type SprintStatus string

const (
	SprintPlanned   SprintStatus = "planned"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

type Sprint struct {
	ID             string
	Name           string
	StartDate      time.Time
	EndDate        time.Time
	Status         SprintStatus
	CapacityHours  float64
	VelocityTarget float64
	CreatedAt      time.Time
}

type SprintDraft struct {
	Name           string
	StartDate      time.Time
	EndDate        time.Time
	CapacityHours  float64
	VelocityTarget float64
}

type DeveloperPerformance struct {
	DeveloperID    string
	Name           string
	CompletedTasks int
	CompletedHours float64
	StoryPoints    int
}

type Retrospective struct {
	SprintID         string
	VelocityAchieved int
	CompletionRate   float64
	Performance      []DeveloperPerformance
	Blockers         []string
	Improvements     []string
	Celebrations     []string
}
