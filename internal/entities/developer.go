package entities

type Developer struct {
	ID                 string
	Name               string
	Velocity           float64
	Strengths          []string
	PreferredTaskTypes []TaskType
	CodeQuality        float64
	Collaboration      float64
	IsActive           bool
}

func (d Developer) Prefers(taskType TaskType) bool {
	for _, t := range d.PreferredTaskTypes {
		if t == taskType {
			return true
		}
	}
	return false
}
