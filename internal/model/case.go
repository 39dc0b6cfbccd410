package model

// Requirement is a single functional or non-functional requirement record.
type Requirement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Case is one system's requirement set. Corpus cases carry a known
// architecture label; the target case does not.
type Case struct {
	FunctionalRequirements    []Requirement `json:"functional_requirements"`
	NonFunctionalRequirements []Requirement `json:"non_functional_requirements"`
	ArchitectureLabel         string        `json:"architecture_label,omitempty"`
}

// Labeled reports whether the case carries an architecture label.
func (c Case) Labeled() bool {
	return c.ArchitectureLabel != ""
}
