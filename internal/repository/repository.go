package repository

// Repository aggregates the collaborator contracts the planning engine
// depends on. The postgres implementation satisfies all of them.
type Repository interface {
	DeveloperRepository
	TaskRepository
	SprintRepository
}
