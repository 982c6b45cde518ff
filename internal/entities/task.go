package entities

import "time"

type TaskType string

const (
	TaskTypeFeature  TaskType = "feature"
	TaskTypeBug      TaskType = "bug"
	TaskTypeRefactor TaskType = "refactor"
	TaskTypeDocs     TaskType = "docs"
	TaskTypeTest     TaskType = "test"
	TaskTypeDevOps   TaskType = "devops"
)

func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeFeature, TaskTypeBug, TaskTypeRefactor, TaskTypeDocs, TaskTypeTest, TaskTypeDevOps:
		return true
	default:
		return false
	}
}

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Weight orders tasks for greedy assignment. Higher weight is processed first.
func (p TaskPriority) Weight() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusDone       TaskStatus = "done"
)

type Task struct {
	ID                   string
	Title                string
	Description          string
	Type                 TaskType
	Priority             TaskPriority
	EstimatedEffortHours float64
	StoryPoints          int
	AssigneeID           *string
	SprintID             *string
	Dependencies         []string
	Status               TaskStatus
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CountsTowardLoad reports whether the task consumes its assignee's capacity.
func (t Task) CountsTowardLoad() bool {
	return t.Status == StatusTodo || t.Status == StatusInProgress
}

func (t Task) AssignedTo(developerID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == developerID
}
