package model

import (
	"fmt"
	"math"
	"strings"
)

// Box is an axis-aligned bounding box.
//
// The zero Box is empty: it covers nothing and Union with it returns the other operand.
type Box struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

// PointBox returns the degenerate box covering exactly p.
// The returned box shares p's backing array.
func PointBox(p Vector) Box {
	return Box{Min: p, Max: p}
}

// IsEmpty reports whether b covers nothing.
func (b Box) IsEmpty() bool {
	return len(b.Min) == 0
}

// Dim returns the dimensionality of b.
func (b Box) Dim() int { return len(b.Min) }

// Clone returns a deep copy of b.
func (b Box) Clone() Box {
	if b.IsEmpty() {
		return Box{}
	}
	mins := make([]float64, len(b.Min))
	maxs := make([]float64, len(b.Max))
	copy(mins, b.Min)
	copy(maxs, b.Max)
	return Box{Min: mins, Max: maxs}
}

// Union returns the smallest box enclosing both boxes.
func (b Box) Union(o Box) Box {
	if b.IsEmpty() {
		return o.Clone()
	}
	if o.IsEmpty() {
		return b.Clone()
	}
	out := Box{Min: make([]float64, len(b.Min)), Max: make([]float64, len(b.Max))}
	for i := range b.Min {
		out.Min[i] = math.Min(b.Min[i], o.Min[i])
		out.Max[i] = math.Max(b.Max[i], o.Max[i])
	}
	return out
}

// Extend grows b in place to include o. b must not share its slices with
// another box; use Clone first when unsure.
func (b *Box) Extend(o Box) {
	if o.IsEmpty() {
		return
	}
	if b.IsEmpty() {
		*b = o.Clone()
		return
	}
	for i := range b.Min {
		if o.Min[i] < b.Min[i] {
			b.Min[i] = o.Min[i]
		}
		if o.Max[i] > b.Max[i] {
			b.Max[i] = o.Max[i]
		}
	}
}

// Volume returns the product of the side lengths.
func (b Box) Volume() float64 {
	if b.IsEmpty() {
		return 0
	}
	v := 1.0
	for i := range b.Min {
		v *= b.Max[i] - b.Min[i]
	}
	return v
}

// Margin returns the sum of the side lengths.
func (b Box) Margin() float64 {
	var m float64
	for i := range b.Min {
		m += b.Max[i] - b.Min[i]
	}
	return m
}

// Overlap returns the volume of the intersection of b and o.
func (b Box) Overlap(o Box) float64 {
	if b.IsEmpty() || o.IsEmpty() {
		return 0
	}
	v := 1.0
	for i := range b.Min {
		lo := math.Max(b.Min[i], o.Min[i])
		hi := math.Min(b.Max[i], o.Max[i])
		if hi <= lo {
			return 0
		}
		v *= hi - lo
	}
	return v
}

// Enlargement returns the volume increase required for b to include o.
func (b Box) Enlargement(o Box) float64 {
	return b.Union(o).Volume() - b.Volume()
}

// Contains reports whether p lies inside b (boundaries included).
func (b Box) Contains(p Vector) bool {
	if b.IsEmpty() || len(p) != len(b.Min) {
		return false
	}
	for i, x := range p {
		if x < b.Min[i] || x > b.Max[i] {
			return false
		}
	}
	return true
}

// ContainsBox reports whether o lies completely inside b.
func (b Box) ContainsBox(o Box) bool {
	if o.IsEmpty() {
		return true
	}
	if b.IsEmpty() || len(o.Min) != len(b.Min) {
		return false
	}
	for i := range b.Min {
		if o.Min[i] < b.Min[i] || o.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both boxes have identical bounds.
func (b Box) Equal(o Box) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return b.IsEmpty() == o.IsEmpty()
	}
	if len(b.Min) != len(o.Min) {
		return false
	}
	for i := range b.Min {
		if b.Min[i] != o.Min[i] || b.Max[i] != o.Max[i] {
			return false
		}
	}
	return true
}

// Center returns the midpoint of b along dimension d.
func (b Box) Center(d int) float64 {
	return (b.Min[d] + b.Max[d]) / 2
}

func (b Box) String() string {
	if b.IsEmpty() {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i := range b.Min {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%g..%g", b.Min[i], b.Max[i])
	}
	sb.WriteByte(']')
	return sb.String()
}
