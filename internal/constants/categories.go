package constants

// Category is the coarse bucket an extracted activity belongs to.
type Category string

const (
	CategoryHealth   Category = "health"
	CategoryFitness  Category = "fitness"
	CategoryWork     Category = "work"
	CategoryLearning Category = "learning"
	CategorySelfCare Category = "self_care"
	CategoryOther    Category = "other"
)

// Categories lists every category the extractor may emit.
var Categories = []Category{
	CategoryHealth,
	CategoryFitness,
	CategoryWork,
	CategoryLearning,
	CategorySelfCare,
	CategoryOther,
}

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
