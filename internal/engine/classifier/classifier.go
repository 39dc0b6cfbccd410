package classifier

import (
	"fmt"
	"math"

	"github.com/crimson-sun/archlens/internal/model"
)

// Options controls logistic regression training.
type Options struct {
	C       float64 // inverse L2 regularization strength
	MaxIter int
	Tol     float64 // stop when the largest gradient component falls below Tol
}

// DefaultOptions mirrors the usual logistic regression defaults: C=1,
// 1000 iterations.
func DefaultOptions() Options {
	return Options{C: 1.0, MaxIter: 1000, Tol: 1e-4}
}

// Linear is implemented by classifiers whose decision function is
// w_k·x + b_k. Attribution is only defined for classifiers exposing it.
type Linear interface {
	// Weights returns one row per decision function: a single row for a
	// two-class model, one row per class otherwise.
	Weights() [][]float64
	Intercepts() []float64
	NumClasses() int
	Dim() int
}

// Model is a fitted L2-regularized logistic regression. Two classes use a
// single sigmoid decision function (positive class = index 1); three or more
// use a multinomial softmax with one weight vector per class.
type Model struct {
	classes   int
	dim       int
	w         [][]float64
	b         []float64
	iters     int
	converged bool
}

var _ Linear = (*Model)(nil)

// Fit trains a model on the given vectors and class indices. labels[i] is
// the class of vectors[i] and must lie in [0, numClasses).
func Fit(vectors [][]float32, labels []int, numClasses int, opts Options) (*Model, error) {
	if len(vectors) == 0 {
		return nil, &model.InsufficientDataError{}
	}
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("classifier: %d vectors but %d labels", len(vectors), len(labels))
	}
	if numClasses < 2 {
		return nil, &model.InsufficientDataError{Cases: len(vectors), Labels: numClasses}
	}
	if opts.C <= 0 {
		return nil, fmt.Errorf("classifier: C must be positive, got %v", opts.C)
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("classifier: zero-dimensional vectors")
	}
	x := make([][]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, &model.DimensionMismatchError{What: fmt.Sprintf("training vector %d", i), Want: dim, Got: len(v)}
		}
		if labels[i] < 0 || labels[i] >= numClasses {
			return nil, fmt.Errorf("classifier: label %d of sample %d out of range [0, %d)", labels[i], i, numClasses)
		}
		x[i] = toFloat64(v)
	}

	rows := numClasses
	if numClasses == 2 {
		rows = 1
	}
	p := &problem{x: x, y: labels, rows: rows, dim: dim, c: opts.C}
	theta, iters, converged := minimize(p, make([]float64, rows*(dim+1)), opts)

	m := &Model{classes: numClasses, dim: dim, iters: iters, converged: converged}
	m.w = make([][]float64, rows)
	m.b = make([]float64, rows)
	for r := 0; r < rows; r++ {
		off := r * (dim + 1)
		m.w[r] = append([]float64(nil), theta[off:off+dim]...)
		m.b[r] = theta[off+dim]
	}
	return m, nil
}

// Predict returns the most likely class index for x. Ties go to the lowest
// index.
func (m *Model) Predict(x []float32) (int, error) {
	scores, err := m.Decision(x)
	if err != nil {
		return 0, err
	}
	if m.classes == 2 {
		if scores[0] > 0 {
			return 1, nil
		}
		return 0, nil
	}
	best := 0
	for k := 1; k < len(scores); k++ {
		if scores[k] > scores[best] {
			best = k
		}
	}
	return best, nil
}

// Decision returns the raw decision values w·x+b, one per weight row.
func (m *Model) Decision(x []float32) ([]float64, error) {
	if len(x) != m.dim {
		return nil, &model.DimensionMismatchError{What: "input vector", Want: m.dim, Got: len(x)}
	}
	out := make([]float64, len(m.w))
	for r, w := range m.w {
		s := m.b[r]
		for j, v := range x {
			s += w[j] * float64(v)
		}
		out[r] = s
	}
	return out, nil
}

// Probabilities returns the class probabilities for x, indexed by class.
func (m *Model) Probabilities(x []float32) ([]float64, error) {
	scores, err := m.Decision(x)
	if err != nil {
		return nil, err
	}
	if m.classes == 2 {
		p := sigmoid(scores[0])
		return []float64{1 - p, p}, nil
	}
	lse := logSumExp(scores)
	out := make([]float64, len(scores))
	for k, s := range scores {
		out[k] = math.Exp(s - lse)
	}
	return out, nil
}

func (m *Model) Weights() [][]float64 {
	out := make([][]float64, len(m.w))
	for r, w := range m.w {
		out[r] = append([]float64(nil), w...)
	}
	return out
}

func (m *Model) Intercepts() []float64 {
	return append([]float64(nil), m.b...)
}

func (m *Model) NumClasses() int { return m.classes }

func (m *Model) Dim() int { return m.dim }

// Iterations returns the number of optimizer iterations used by Fit.
func (m *Model) Iterations() int { return m.iters }

// Converged reports whether Fit reached the gradient tolerance before
// MaxIter.
func (m *Model) Converged() bool { return m.converged }

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
