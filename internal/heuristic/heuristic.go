// Package heuristic predicts an architecture by counting keyword matches in
// requirement text. It is independent of the learned classifier and its
// result is reported alongside, never reconciled.
package heuristic

import (
	"encoding/json"
	"strings"

	"github.com/crimson-sun/archlens/internal/model"
)

// Rule lists the keywords that vote for one architecture.
type Rule struct {
	Architecture string
	Keywords     []string
}

// DefaultRules is the built-in table. Order matters: ties go to the earlier
// rule.
var DefaultRules = []Rule{
	{"Microservices", []string{"integration", "scalability", "modularity", "services", "independent"}},
	{"Event-Driven", []string{"real-time", "event", "updates", "notifications"}},
	{"MVC", []string{"interface", "controller", "user interaction", "forms", "navigation"}},
	{"Layered", []string{"persistence", "database", "business logic", "data processing", "separation"}},
}

// Score is one architecture's keyword count.
type Score struct {
	Architecture string
	Score        int
}

// Report is the scorer's artifact.
type Report struct {
	PredictedArchitecture string
	Scores                []Score // in rule order
}

// MarshalJSON writes {"predicted_architecture", "architecture_scores"} with
// scores as an object in rule order.
func (r Report) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteString(`{"predicted_architecture":`)
	name, err := json.Marshal(r.PredictedArchitecture)
	if err != nil {
		return nil, err
	}
	b.Write(name)
	b.WriteString(`,"architecture_scores":{`)
	for i, s := range r.Scores {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(s.Architecture)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		v, _ := json.Marshal(s.Score)
		b.Write(v)
	}
	b.WriteString("}}")
	return []byte(b.String()), nil
}

// Scorer applies a rule table.
type Scorer struct {
	rules []Rule
}

// New creates a Scorer; nil rules means DefaultRules.
func New(rules []Rule) *Scorer {
	if rules == nil {
		rules = DefaultRules
	}
	return &Scorer{rules: rules}
}

// Score counts, per keyword, how many lowercased titles and descriptions
// contain it, and sums per architecture.
func (s *Scorer) Score(c model.Case) []Score {
	var texts []string
	for _, reqs := range [][]model.Requirement{c.FunctionalRequirements, c.NonFunctionalRequirements} {
		for _, r := range reqs {
			texts = append(texts, strings.ToLower(r.Title), strings.ToLower(r.Description))
		}
	}

	scores := make([]Score, len(s.rules))
	for i, rule := range s.rules {
		scores[i].Architecture = rule.Architecture
		for _, kw := range rule.Keywords {
			for _, t := range texts {
				if strings.Contains(t, kw) {
					scores[i].Score++
				}
			}
		}
	}
	return scores
}

// Predict scores c and picks the highest score; ties go to the first rule.
func (s *Scorer) Predict(c model.Case) Report {
	scores := s.Score(c)
	best := 0
	for i, sc := range scores {
		if sc.Score > scores[best].Score {
			best = i
		}
	}
	r := Report{Scores: scores}
	if len(scores) > 0 {
		r.PredictedArchitecture = scores[best].Architecture
	}
	return r
}
