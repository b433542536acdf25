package distance

import (
	"cmp"
	"fmt"
	"math"

	"github.com/hupe1980/spatialknn/model"
)

// Func is a distance function over vectors with a totally ordered result type.
type Func[D cmp.Ordered] interface {
	// Distance returns the distance between a and b.
	// Assumes vectors are the same length (caller's responsibility).
	Distance(a, b model.Vector) D
	// Infinity returns the sentinel greater than every finite distance.
	Infinity() D
	// Zero returns the empty distance.
	Zero() D
	// Name returns a stable name of the function.
	Name() string
}

// Spatial is a distance function that can bound distances to whole boxes.
type Spatial[D cmp.Ordered] interface {
	Func[D]
	// MinDist returns a lower bound of Distance(q, p) for every p inside b.
	// It is exactly Zero when q lies inside b.
	MinDist(b model.Box, q model.Vector) D
}

// AsSpatial returns fn as a Spatial function, or nil when fn cannot bound boxes.
func AsSpatial[D cmp.Ordered](fn Func[D]) Spatial[D] {
	if s, ok := fn.(Spatial[D]); ok {
		return s
	}
	return nil
}

// Metric enumerates the built-in float64 distance functions.
type Metric int

const (
	MetricEuclidean Metric = iota
	MetricSquaredEuclidean
	MetricManhattan
	MetricMaximum
	MetricCosine
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "Euclidean"
	case MetricSquaredEuclidean:
		return "SquaredEuclidean"
	case MetricManhattan:
		return "Manhattan"
	case MetricMaximum:
		return "Maximum"
	case MetricCosine:
		return "Cosine"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func[float64], error) {
	switch m {
	case MetricEuclidean:
		return Euclidean{}, nil
	case MetricSquaredEuclidean:
		return SquaredEuclidean{}, nil
	case MetricManhattan:
		return Manhattan{}, nil
	case MetricMaximum:
		return Maximum{}, nil
	case MetricCosine:
		return Cosine{}, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

// gap returns how far x lies outside [lo, hi], or 0 if inside.
func gap(x, lo, hi float64) float64 {
	if x < lo {
		return lo - x
	}
	if x > hi {
		return x - hi
	}
	return 0
}

var inf = math.Inf(1)

// Euclidean is the L2 distance.
type Euclidean struct{}

func (Euclidean) Name() string      { return "euclidean" }
func (Euclidean) Infinity() float64 { return inf }
func (Euclidean) Zero() float64     { return 0 }

func (Euclidean) Distance(a, b model.Vector) float64 {
	return math.Sqrt(SquaredEuclidean{}.Distance(a, b))
}

func (Euclidean) MinDist(b model.Box, q model.Vector) float64 {
	return math.Sqrt(SquaredEuclidean{}.MinDist(b, q))
}

// SquaredEuclidean is the squared L2 distance. It orders neighbors exactly like
// Euclidean without the square root.
type SquaredEuclidean struct{}

func (SquaredEuclidean) Name() string      { return "squared_euclidean" }
func (SquaredEuclidean) Infinity() float64 { return inf }
func (SquaredEuclidean) Zero() float64     { return 0 }

func (SquaredEuclidean) Distance(a, b model.Vector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func (SquaredEuclidean) MinDist(b model.Box, q model.Vector) float64 {
	var sum float64
	for i := range q {
		d := gap(q[i], b.Min[i], b.Max[i])
		sum += d * d
	}
	return sum
}

// Manhattan is the L1 distance.
type Manhattan struct{}

func (Manhattan) Name() string      { return "manhattan" }
func (Manhattan) Infinity() float64 { return inf }
func (Manhattan) Zero() float64     { return 0 }

func (Manhattan) Distance(a, b model.Vector) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

func (Manhattan) MinDist(b model.Box, q model.Vector) float64 {
	var sum float64
	for i := range q {
		sum += gap(q[i], b.Min[i], b.Max[i])
	}
	return sum
}

// Maximum is the L∞ (Chebyshev) distance.
type Maximum struct{}

func (Maximum) Name() string      { return "maximum" }
func (Maximum) Infinity() float64 { return inf }
func (Maximum) Zero() float64     { return 0 }

func (Maximum) Distance(a, b model.Vector) float64 {
	var m float64
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > m {
			m = d
		}
	}
	return m
}

func (Maximum) MinDist(b model.Box, q model.Vector) float64 {
	var m float64
	for i := range q {
		if d := gap(q[i], b.Min[i], b.Max[i]); d > m {
			m = d
		}
	}
	return m
}

// SquaredEuclidean32 is the squared L2 distance accumulated in float32.
// Useful when neighbor lists are stored compactly; rounding is monotonic, so
// MinDist remains a valid lower bound.
type SquaredEuclidean32 struct{}

func (SquaredEuclidean32) Name() string      { return "squared_euclidean32" }
func (SquaredEuclidean32) Infinity() float32 { return float32(inf) }
func (SquaredEuclidean32) Zero() float32     { return 0 }

func (SquaredEuclidean32) Distance(a, b model.Vector) float32 {
	var sum float32
	for i := range a {
		d := float32(math.Abs(a[i] - b[i]))
		sum += d * d
	}
	return sum
}

func (SquaredEuclidean32) MinDist(b model.Box, q model.Vector) float32 {
	var sum float32
	for i := range q {
		d := float32(gap(q[i], b.Min[i], b.Max[i]))
		sum += d * d
	}
	return sum
}

// Cosine is 1 - cos(a, b). It has no box lower bound, so tree engines reject it.
type Cosine struct{}

func (Cosine) Name() string      { return "cosine" }
func (Cosine) Infinity() float64 { return inf }
func (Cosine) Zero() float64     { return 0 }

func (Cosine) Distance(a, b model.Vector) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
