// Package attribution explains a single linear-classifier prediction by
// assigning each embedding dimension a signed contribution, measured against
// the training corpus as background.
package attribution

import (
	"fmt"
	"math"
	"sort"

	"github.com/crimson-sun/archlens/internal/engine/classifier"
	"github.com/crimson-sun/archlens/internal/model"
)

// Attribution is the result of explaining one input: either Single or
// PerClass.
type Attribution interface {
	isAttribution()
}

// Single holds one contribution per dimension. Two-class models produce it;
// the values are contributions to the positive-class decision function.
type Single struct {
	Values []float64
}

// PerClass holds one contribution vector per class index.
type PerClass struct {
	Values map[int][]float64
}

func (Single) isAttribution()   {}
func (PerClass) isAttribution() {}

// Explainer attributes a model's output for x to x's dimensions.
type Explainer interface {
	Attribute(x []float32) (Attribution, error)
}

// Linear computes exact additive attributions for a linear model:
// phi_kj = w_kj * (x_j - mean_j), where mean is taken over the background.
// Per class, the contributions sum to the decision value of x minus the
// decision value of the background mean.
type Linear struct {
	weights [][]float64
	mean    []float64
}

var _ Explainer = (*Linear)(nil)

// NewLinear builds an explainer for m using background (normally the
// training corpus embeddings) as the reference distribution.
func NewLinear(m classifier.Linear, background [][]float32) (*Linear, error) {
	if len(background) == 0 {
		return nil, &model.InsufficientDataError{}
	}
	dim := m.Dim()
	mean := make([]float64, dim)
	for i, v := range background {
		if len(v) != dim {
			return nil, &model.DimensionMismatchError{What: fmt.Sprintf("background vector %d", i), Want: dim, Got: len(v)}
		}
		for j, f := range v {
			mean[j] += float64(f)
		}
	}
	n := float64(len(background))
	for j := range mean {
		mean[j] /= n
	}
	return &Linear{weights: m.Weights(), mean: mean}, nil
}

// Mean returns the background mean the explainer measures against.
func (l *Linear) Mean() []float64 {
	return append([]float64(nil), l.mean...)
}

func (l *Linear) Attribute(x []float32) (Attribution, error) {
	if len(x) != len(l.mean) {
		return nil, &model.DimensionMismatchError{What: "explained vector", Want: len(l.mean), Got: len(x)}
	}
	if len(l.weights) == 1 {
		return Single{Values: l.contributions(l.weights[0], x)}, nil
	}
	pc := PerClass{Values: make(map[int][]float64, len(l.weights))}
	for k, w := range l.weights {
		pc.Values[k] = l.contributions(w, x)
	}
	return pc, nil
}

func (l *Linear) contributions(w []float64, x []float32) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = w[j] * (float64(v) - l.mean[j])
	}
	return out
}

// Explain returns the per-dimension contributions for the predicted class.
// A Single attribution is used as is; a PerClass attribution must contain
// the predicted class. Any other shape is a *model.ShapeAssumptionError.
func Explain(e Explainer, x []float32, predicted int) ([]float64, error) {
	a, err := e.Attribute(x)
	if err != nil {
		return nil, err
	}

	var values []float64
	switch v := a.(type) {
	case Single:
		values = v.Values
	case PerClass:
		plane, ok := v.Values[predicted]
		if !ok {
			return nil, &model.ShapeAssumptionError{
				Detail: fmt.Sprintf("per-class attribution has no plane for predicted class %d (%d planes)", predicted, len(v.Values)),
			}
		}
		values = plane
	default:
		return nil, &model.ShapeAssumptionError{Detail: fmt.Sprintf("unexpected attribution type %T", a)}
	}

	if len(values) != len(x) {
		return nil, &model.DimensionMismatchError{What: "attribution", Want: len(x), Got: len(values)}
	}
	return values, nil
}

// TopK ranks contributions by absolute value, largest first, and keeps the
// first k. Equal magnitudes keep ascending dimension order.
func TopK(values []float64, k int) []model.Feature {
	if k > len(values) {
		k = len(values)
	}
	if k <= 0 {
		return []model.Feature{}
	}
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(values[idx[a]]) > math.Abs(values[idx[b]])
	})

	out := make([]model.Feature, k)
	for i := 0; i < k; i++ {
		out[i] = model.Feature{Dimension: idx[i], SHAPValue: values[idx[i]]}
	}
	return out
}
