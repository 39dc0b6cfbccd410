// Package flatten serializes a case's requirement records into the single
// text blob fed to the embedder.
package flatten

import (
	"strings"

	"github.com/crimson-sun/archlens/internal/model"
)

// Text returns the flattened text of a case: every functional requirement's
// title and description, then every non-functional one, space separated.
// The output is byte-stable and order-sensitive; no case folding or trimming
// is applied.
func Text(c model.Case) string {
	return block(c.FunctionalRequirements) + " " + block(c.NonFunctionalRequirements)
}

// All flattens every case, preserving order.
func All(cases []model.Case) []string {
	texts := make([]string, len(cases))
	for i, c := range cases {
		texts[i] = Text(c)
	}
	return texts
}

func block(reqs []model.Requirement) string {
	var b strings.Builder
	for i, r := range reqs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(r.Title)
		b.WriteByte(' ')
		b.WriteString(r.Description)
	}
	return b.String()
}
