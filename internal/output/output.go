// Package output defines destinations for the explanation artifact.
package output

import (
	"context"
	"encoding/json"

	"github.com/crimson-sun/archlens/internal/model"
)

// Output receives the explanation artifact of a run.
type Output interface {
	Write(ctx context.Context, exp model.Explanation) error
	Close() error
}

// Marshal encodes the artifact as JSON. An empty feature list encodes as
// [] rather than null.
func Marshal(exp model.Explanation, pretty bool) ([]byte, error) {
	if exp.TopContributingFeatures == nil {
		exp.TopContributingFeatures = []model.Feature{}
	}
	if pretty {
		return json.MarshalIndent(exp, "", "  ")
	}
	return json.Marshal(exp)
}
