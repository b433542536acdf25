package testutil

import (
	"cmp"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/spatialknn/distance"
	"github.com/hupe1980/spatialknn/knn"
	"github.com/hupe1980/spatialknn/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// UniformPoint returns a random point with coordinates in [0, 1).
func (r *RNG) UniformPoint(dim int) model.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := make(model.Vector, dim)
	for i := range p {
		p[i] = r.rand.Float64()
	}
	return p
}

// UniformPoints generates random points with coordinates in [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformPoints(num, dim int) []model.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dim)
	points := make([]model.Vector, num)
	for i := range num {
		p := data[i*dim : (i+1)*dim : (i+1)*dim]
		for j := range p {
			p[j] = r.rand.Float64()
		}
		points[i] = p
	}
	return points
}

// GridPoints generates points with integer coordinates in [0, side).
// Duplicates and equal distances are frequent, which exercises tie handling.
func (r *RNG) GridPoints(num, dim, side int) []model.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()

	points := make([]model.Vector, num)
	for i := range num {
		p := make(model.Vector, dim)
		for j := range p {
			p[j] = float64(r.rand.Intn(side))
		}
		points[i] = p
	}
	return points
}

// ClusteredPoints generates points scattered around random centers.
func (r *RNG) ClusteredPoints(num, dim, clusters int, spread float64) []model.Vector {
	centers := r.UniformPoints(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	points := make([]model.Vector, num)
	for i := range num {
		c := centers[i%clusters]
		p := make(model.Vector, dim)
		for j := range p {
			p[j] = c[j] + r.rand.NormFloat64()*spread
		}
		points[i] = p
	}
	return points
}

// SequentialIDs returns the ids 1..n.
func SequentialIDs(n int) []model.ObjectID {
	ids := make([]model.ObjectID, n)
	for i := range ids {
		ids[i] = model.ObjectID(i + 1)
	}
	return ids
}

// ExactKNN returns the k nearest neighbors of q by linear scan, ordered by
// (distance, id), including every neighbor tied with the k-th distance.
func ExactKNN[D cmp.Ordered](fn distance.Func[D], ids []model.ObjectID, points []model.Vector, q model.Vector, k int) []knn.Neighbor[D] {
	all := make([]knn.Neighbor[D], len(ids))
	for i, id := range ids {
		all[i] = knn.Neighbor[D]{ID: id, Distance: fn.Distance(q, points[i])}
	}
	sortNeighbors(all)
	if len(all) <= k {
		return all
	}
	end := k
	for end < len(all) && all[end].Distance == all[k-1].Distance {
		end++
	}
	return all[:end]
}

// ExactRange returns every point within eps of q, ordered by (distance, id).
func ExactRange[D cmp.Ordered](fn distance.Func[D], ids []model.ObjectID, points []model.Vector, q model.Vector, eps D) []knn.Neighbor[D] {
	var out []knn.Neighbor[D]
	for i, id := range ids {
		if d := fn.Distance(q, points[i]); d <= eps {
			out = append(out, knn.Neighbor[D]{ID: id, Distance: d})
		}
	}
	sortNeighbors(out)
	return out
}

func sortNeighbors[D cmp.Ordered](ns []knn.Neighbor[D]) {
	slices.SortFunc(ns, func(a, b knn.Neighbor[D]) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
