package rtree

import (
	"cmp"
	"slices"

	"github.com/hupe1980/spatialknn/model"
)

// split moves part of an overflowing node into a new sibling, using the R*
// topological split. Both halves satisfy the node's minimum fill.
func (t *Tree[E]) split(n *Node[E]) (*Node[E], error) {
	sibling, err := t.newNode(n.Leaf)
	if err != nil {
		return nil, err
	}
	left, right := splitEntries(n.Entries, n.MinFill)
	n.Entries = append(make([]E, 0, n.Capacity+1), left...)
	sibling.Entries = append(sibling.Entries, right...)
	if err := t.store.Put(n); err != nil {
		return nil, err
	}
	if err := t.store.Put(sibling); err != nil {
		return nil, err
	}
	return sibling, nil
}

// splitEntries partitions entries into two groups of at least minFill entries.
//
// The split axis minimizes the summed margins over all candidate distributions;
// along it, the distribution with least overlap (then least total volume) wins.
func splitEntries[E Entry](entries []E, minFill int) ([]E, []E) {
	n := len(entries)
	if minFill < 1 {
		minFill = 1
	}
	if 2*minFill > n {
		minFill = n / 2
	}
	dim := entries[0].Bounds().Dim()

	bestAxis, bestMargin := 0, 0.0
	for axis := 0; axis < dim; axis++ {
		var margin float64
		for _, byUpper := range []bool{false, true} {
			sorted := sortedByAxis(entries, axis, byUpper)
			prefix, suffix := sweep(sorted)
			for k := minFill; k <= n-minFill; k++ {
				margin += prefix[k-1].Margin() + suffix[k].Margin()
			}
		}
		if axis == 0 || margin < bestMargin {
			bestAxis, bestMargin = axis, margin
		}
	}

	var (
		best                []E
		bestK               int
		bestOvl, bestVolume float64
	)
	for _, byUpper := range []bool{false, true} {
		sorted := sortedByAxis(entries, bestAxis, byUpper)
		prefix, suffix := sweep(sorted)
		for k := minFill; k <= n-minFill; k++ {
			ovl := prefix[k-1].Overlap(suffix[k])
			vol := prefix[k-1].Volume() + suffix[k].Volume()
			if best == nil || ovl < bestOvl || (ovl == bestOvl && vol < bestVolume) {
				best, bestK, bestOvl, bestVolume = sorted, k, ovl, vol
			}
		}
	}
	return slices.Clone(best[:bestK]), slices.Clone(best[bestK:])
}

func sortedByAxis[E Entry](entries []E, axis int, byUpper bool) []E {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b E) int {
		ab, bb := a.Bounds(), b.Bounds()
		if byUpper {
			if c := cmp.Compare(ab.Max[axis], bb.Max[axis]); c != 0 {
				return c
			}
			return cmp.Compare(ab.Min[axis], bb.Min[axis])
		}
		if c := cmp.Compare(ab.Min[axis], bb.Min[axis]); c != 0 {
			return c
		}
		return cmp.Compare(ab.Max[axis], bb.Max[axis])
	})
	return out
}

// sweep returns prefix[i] = bounds(sorted[:i+1]) and suffix[i] = bounds(sorted[i:]).
func sweep[E Entry](sorted []E) (prefix, suffix []model.Box) {
	n := len(sorted)
	prefix = make([]model.Box, n)
	suffix = make([]model.Box, n)
	var acc model.Box
	for i, e := range sorted {
		acc.Extend(e.Bounds())
		prefix[i] = acc.Clone()
	}
	acc = model.Box{}
	for i := n - 1; i >= 0; i-- {
		acc.Extend(sorted[i].Bounds())
		suffix[i] = acc.Clone()
	}
	return prefix, suffix
}
