package classifier

import "math"

// problem is the penalized negative log-likelihood
//
//	C * sum_i loss(x_i, y_i) + 0.5 * ||W||^2
//
// over a flat parameter vector laid out as rows of [w_0..w_{dim-1}, b].
// Intercepts are not penalized.
type problem struct {
	x    [][]float64
	y    []int
	rows int
	dim  int
	c    float64
}

// eval returns the objective at theta and writes its gradient into grad.
func (p *problem) eval(theta, grad []float64) float64 {
	for i := range grad {
		grad[i] = 0
	}
	stride := p.dim + 1
	scores := make([]float64, p.rows)
	var loss float64

	for i, xi := range p.x {
		for r := 0; r < p.rows; r++ {
			off := r * stride
			s := theta[off+p.dim]
			w := theta[off : off+p.dim]
			for j, v := range xi {
				s += w[j] * v
			}
			scores[r] = s
		}

		if p.rows == 1 {
			z := scores[0]
			y := float64(p.y[i])
			loss += softplus(z) - y*z
			p.accumulate(grad[:stride], xi, sigmoid(z)-y)
			continue
		}

		lse := logSumExp(scores)
		loss += lse - scores[p.y[i]]
		for r := 0; r < p.rows; r++ {
			res := math.Exp(scores[r] - lse)
			if r == p.y[i] {
				res -= 1
			}
			p.accumulate(grad[r*stride:(r+1)*stride], xi, res)
		}
	}

	obj := p.c * loss
	for r := 0; r < p.rows; r++ {
		off := r * stride
		for j := 0; j < p.dim; j++ {
			w := theta[off+j]
			obj += 0.5 * w * w
			grad[off+j] += w
		}
	}
	return obj
}

// accumulate adds C*res*[x, 1] into one row of the gradient.
func (p *problem) accumulate(row, x []float64, res float64) {
	f := p.c * res
	for j, v := range x {
		row[j] += f * v
	}
	row[p.dim] += f
}

// minimize runs gradient descent with Barzilai-Borwein step sizes and an
// Armijo backtracking line search. The objective is strictly convex, so the
// result does not depend on anything but the data and options.
func minimize(p *problem, theta []float64, opts Options) ([]float64, int, bool) {
	const (
		armijo  = 1e-4
		minStep = 1e-12
	)
	n := len(theta)
	grad := make([]float64, n)
	cand := make([]float64, n)
	candGrad := make([]float64, n)

	f := p.eval(theta, grad)
	step := 1.0

	for iter := 0; iter < opts.MaxIter; iter++ {
		if maxAbs(grad) < opts.Tol {
			return theta, iter, true
		}
		gg := dot(grad, grad)

		t := step
		var fc float64
		for {
			for i := range theta {
				cand[i] = theta[i] - t*grad[i]
			}
			fc = p.eval(cand, candGrad)
			if fc <= f-armijo*t*gg {
				break
			}
			t *= 0.5
			if t < minStep {
				// No further descent is possible at float precision.
				return theta, iter, false
			}
		}

		// Barzilai-Borwein: s = Δθ, y = Δgrad, next step = s·s / s·y.
		var ss, sy float64
		for i := range theta {
			s := cand[i] - theta[i]
			y := candGrad[i] - grad[i]
			ss += s * s
			sy += s * y
		}
		if sy > 0 {
			step = ss / sy
		} else {
			step = 2 * t
		}

		theta, cand = cand, theta
		grad, candGrad = candGrad, grad
		f = fc
	}
	return theta, opts.MaxIter, maxAbs(grad) < opts.Tol
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1+e^z) without overflow.
func softplus(z float64) float64 {
	return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
}

func logSumExp(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	var s float64
	for _, x := range v {
		s += math.Exp(x - m)
	}
	return m + math.Log(s)
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}
