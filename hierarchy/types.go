// SPDX-License-Identifier: MIT

// Package hierarchy defines the aggregation key structure of a grouped panel:
// key Values (concrete levels or the aggregated marker), Nodes (one per distinct
// key combination) and KeyData (the ordered node set with its key variables).
//
// This file declares Value, Node, NodeID, KeyData, Tier, sentinel errors and the
// New / FromRows constructors.
//
// Errors:
//
//	ErrInvalidKeyData     - arity mismatch, duplicate node, empty key set, uncovered aggregate.
//	ErrDisjointHierarchy  - a key variable defines separate (non-nested) trees.
package hierarchy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Sentinel errors for key structure operations.
var (
	// ErrInvalidKeyData indicates a malformed aggregation key structure.
	ErrInvalidKeyData = errors.New("hierarchy: invalid key data")

	// ErrDisjointHierarchy indicates a key variable that is never aggregated yet takes
	// more than one level (or, for the dummy builder, is aggregated everywhere).
	ErrDisjointHierarchy = errors.New("hierarchy: disjoint hierarchies are not supported")
)

// AggregatedMarker is the printed form of an aggregated key value.
const AggregatedMarker = "<aggregated>"

// hierarchyErrorf wraps err with an operation tag, preserving it for errors.Is.
func hierarchyErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// Value is one key cell: either a concrete level label or the aggregated marker.
type Value struct {
	Label      string
	Aggregated bool
}

// Agg returns the aggregated marker ("summed over this variable").
func Agg() Value { return Value{Aggregated: true} }

// Level returns a concrete key level.
func Level(label string) Value { return Value{Label: label} }

// String renders the label, or AggregatedMarker for the marker.
func (v Value) String() string {
	if v.Aggregated {
		return AggregatedMarker
	}

	return v.Label
}

// ParseValue is the inverse of String.
func ParseValue(s string) Value {
	if s == AggregatedMarker {
		return Agg()
	}

	return Level(s)
}

// NodeID identifies a node as "var=value/var=value" in key variable order.
type NodeID string

// Node is one key combination and the table rows carrying it.
type Node struct {
	// Values holds one Value per key variable, in KeyData.Vars order.
	Values []Value

	// Rows lists the underlying table row positions with this key combination.
	Rows []int
}

// IsLeaf reports whether the node carries no aggregated marker.
func (n Node) IsLeaf() bool {
	for _, v := range n.Values {
		if v.Aggregated {
			return false
		}
	}

	return true
}

// ID renders the node identity against the given key variable names.
func (n Node) ID(vars []string) NodeID {
	var b strings.Builder
	for i, v := range n.Values {
		if i > 0 {
			b.WriteByte('/')
		}
		if i < len(vars) {
			b.WriteString(vars[i])
		}
		b.WriteByte('=')
		b.WriteString(v.String())
	}

	return NodeID(b.String())
}

// firstRow returns the smallest table row of n, or -1 when n has no rows.
func (n Node) firstRow() int {
	if len(n.Rows) == 0 {
		return -1
	}
	min := n.Rows[0]
	for _, r := range n.Rows[1:] {
		if r < min {
			min = r
		}
	}

	return min
}

// aggPattern encodes which variables are aggregated, one byte per variable.
func (n Node) aggPattern() string {
	b := make([]byte, len(n.Values))
	for i, v := range n.Values {
		if v.Aggregated {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}

	return string(b)
}

// KeyData is the ordered aggregation key structure backing a model table.
type KeyData struct {
	// Vars lists key variable names in column order.
	Vars []string

	// Nodes lists every hierarchy node in table order.
	Nodes []Node
}

// New validates and returns a KeyData over the given variables and nodes.
//
// Errors:
//   - ErrInvalidKeyData for an empty or duplicated variable list, a node whose arity
//     differs from len(vars), or two nodes with the same identity.
func New(vars []string, nodes []Node) (KeyData, error) {
	if len(vars) == 0 {
		return KeyData{}, hierarchyErrorf("New", fmt.Errorf("no key variables: %w", ErrInvalidKeyData))
	}
	seenVar := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if _, dup := seenVar[v]; dup {
			return KeyData{}, hierarchyErrorf("New", fmt.Errorf("duplicate key variable %q: %w", v, ErrInvalidKeyData))
		}
		seenVar[v] = struct{}{}
	}

	seen := make(map[NodeID]int, len(nodes))
	for i, n := range nodes {
		if len(n.Values) != len(vars) {
			return KeyData{}, hierarchyErrorf("New",
				fmt.Errorf("node %d has %d values, want %d: %w", i, len(n.Values), len(vars), ErrInvalidKeyData))
		}
		id := n.ID(vars)
		if j, dup := seen[id]; dup {
			return KeyData{}, hierarchyErrorf("New", fmt.Errorf("nodes %d and %d are both %s: %w", j, i, id, ErrInvalidKeyData))
		}
		seen[id] = i
	}

	return KeyData{Vars: append([]string(nil), vars...), Nodes: nodes}, nil
}

// FromRows groups table rows by key tuple, in order of first appearance, and fills
// each node's Rows with the positions sharing that tuple.
func FromRows(vars []string, rows [][]Value) (KeyData, error) {
	index := make(map[NodeID]int, len(rows))
	nodes := make([]Node, 0, len(rows))
	for r, vals := range rows {
		if len(vals) != len(vars) {
			return KeyData{}, hierarchyErrorf("FromRows",
				fmt.Errorf("row %d has %d key values, want %d: %w", r, len(vals), len(vars), ErrInvalidKeyData))
		}
		id := Node{Values: vals}.ID(vars)
		if i, ok := index[id]; ok {
			nodes[i].Rows = append(nodes[i].Rows, r)
			continue
		}
		index[id] = len(nodes)
		nodes = append(nodes, Node{Values: append([]Value(nil), vals...), Rows: []int{r}})
	}

	return New(vars, nodes)
}

// Len returns the number of nodes.
func (kd KeyData) Len() int { return len(kd.Nodes) }

// ID returns the identity of node i.
func (kd KeyData) ID(i int) NodeID { return kd.Nodes[i].ID(kd.Vars) }

// IDs returns every node identity in node order.
func (kd KeyData) IDs() []NodeID {
	out := make([]NodeID, len(kd.Nodes))
	for i := range kd.Nodes {
		out[i] = kd.ID(i)
	}

	return out
}

// Leaves returns the indices of leaf nodes, ordered by their first table row
// (node order breaks ties and orders row-less nodes).
func (kd KeyData) Leaves() []int {
	var out []int
	for i, n := range kd.Nodes {
		if n.IsLeaf() {
			out = append(out, i)
		}
	}
	key := func(i int) int {
		if r := kd.Nodes[i].firstRow(); r >= 0 {
			return r
		}

		return math.MaxInt
	}
	sort.SliceStable(out, func(a, b int) bool { return key(out[a]) < key(out[b]) })

	return out
}

// Tier groups nodes sharing one aggregation pattern.
type Tier struct {
	// Aggregated names the variables carrying the marker at this level.
	Aggregated []string

	// Nodes holds node indices in node order.
	Nodes []int

	pattern string
}

// Depth is the number of aggregated variables; leaves sit at depth 0.
func (t Tier) Depth() int { return len(t.Aggregated) }

// Levels groups nodes into tiers by aggregation pattern, most aggregated first.
// Tiers of equal depth keep the order in which their pattern first appears.
func (kd KeyData) Levels() []Tier {
	index := make(map[string]int)
	var levels []Tier
	for i, n := range kd.Nodes {
		p := n.aggPattern()
		li, ok := index[p]
		if !ok {
			var agg []string
			for j, v := range n.Values {
				if v.Aggregated {
					agg = append(agg, kd.Vars[j])
				}
			}
			li = len(levels)
			index[p] = li
			levels = append(levels, Tier{Aggregated: agg, pattern: p})
		}
		levels[li].Nodes = append(levels[li].Nodes, i)
	}
	sort.SliceStable(levels, func(a, b int) bool { return levels[a].Depth() > levels[b].Depth() })

	return levels
}

// checkNested rejects a variable that never carries the marker yet has more than
// one level: such a variable splits the panel into separate trees.
func (kd KeyData) checkNested(tag string) error {
	for j, name := range kd.Vars {
		var (
			labels     []string
			seen       = make(map[string]struct{})
			aggregated bool
		)
		for _, n := range kd.Nodes {
			v := n.Values[j]
			if v.Aggregated {
				aggregated = true
				break
			}
			if _, ok := seen[v.Label]; !ok {
				seen[v.Label] = struct{}{}
				labels = append(labels, v.Label)
			}
		}
		if !aggregated && len(labels) > 1 {
			return hierarchyErrorf(tag, fmt.Errorf("variable %q is never aggregated but has levels %v: %w",
				name, labels, ErrDisjointHierarchy))
		}
	}

	return nil
}
