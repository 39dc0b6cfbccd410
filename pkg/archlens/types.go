package archlens

import "github.com/crimson-sun/archlens/internal/model"

// Requirement is a single functional or non-functional requirement.
type Requirement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Case is one system's requirement set. Label is empty for the target.
type Case struct {
	FunctionalRequirements    []Requirement `json:"functional_requirements"`
	NonFunctionalRequirements []Requirement `json:"non_functional_requirements"`
	Label                     string        `json:"architecture_label,omitempty"`
}

// Feature is one embedding dimension and its signed contribution.
type Feature struct {
	Dimension int     `json:"dimension"`
	SHAPValue float64 `json:"shap_value"`
}

// Explanation is the predicted architecture and its strongest features,
// ordered by decreasing |SHAPValue|.
type Explanation struct {
	PredictedArchitecture   string    `json:"predicted_architecture"`
	TopContributingFeatures []Feature `json:"top_contributing_features"`
}

// Error types returned by Explain and the loaders. Use errors.As.
type (
	MissingFieldError      = model.MissingFieldError
	InsufficientDataError  = model.InsufficientDataError
	DimensionMismatchError = model.DimensionMismatchError
	ShapeAssumptionError   = model.ShapeAssumptionError
)

func toModelRequirements(reqs []Requirement) []model.Requirement {
	out := make([]model.Requirement, len(reqs))
	for i, r := range reqs {
		out[i] = model.Requirement(r)
	}
	return out
}

func fromModelRequirements(reqs []model.Requirement) []Requirement {
	out := make([]Requirement, len(reqs))
	for i, r := range reqs {
		out[i] = Requirement(r)
	}
	return out
}

func (c Case) toModel() model.Case {
	return model.Case{
		FunctionalRequirements:    toModelRequirements(c.FunctionalRequirements),
		NonFunctionalRequirements: toModelRequirements(c.NonFunctionalRequirements),
		ArchitectureLabel:         c.Label,
	}
}

func caseFromModel(c model.Case) Case {
	return Case{
		FunctionalRequirements:    fromModelRequirements(c.FunctionalRequirements),
		NonFunctionalRequirements: fromModelRequirements(c.NonFunctionalRequirements),
		Label:                     c.ArchitectureLabel,
	}
}

func explanationFromModel(e model.Explanation) Explanation {
	out := Explanation{
		PredictedArchitecture:   e.PredictedArchitecture,
		TopContributingFeatures: make([]Feature, len(e.TopContributingFeatures)),
	}
	for i, f := range e.TopContributingFeatures {
		out.TopContributingFeatures[i] = Feature(f)
	}
	return out
}

func (e Explanation) toModel() model.Explanation {
	out := model.Explanation{
		PredictedArchitecture:   e.PredictedArchitecture,
		TopContributingFeatures: make([]model.Feature, len(e.TopContributingFeatures)),
	}
	for i, f := range e.TopContributingFeatures {
		out.TopContributingFeatures[i] = model.Feature(f)
	}
	return out
}
