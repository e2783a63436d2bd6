// SPDX-License-Identifier: MIT

package hierarchy

import (
	"fmt"
	"sort"
	"strings"
)

// Forest is the "is-aggregated-into" graph over KeyData nodes, held as an arena:
// node i of the KeyData is vertex i here, edges are index lists.
//
// In a nested hierarchy every node has at most one parent. Grouped (crossed) keys
// give a leaf one parent per crossing, so the structure is a DAG; leaf sets are
// unions, so shared descendants are counted once.
type Forest struct {
	// Parents[i] lists the nodes i aggregates into directly.
	Parents [][]int

	// Children[i] lists the nodes directly aggregated into i.
	Children [][]int

	// LeafSets[i] lists the leaf nodes covered by i, ordered by leaf column.
	LeafSets [][]int

	// Leaves lists leaf node indices in column order.
	Leaves []int
}

// Roots returns the nodes without parents, in node order.
func (f *Forest) Roots() []int {
	var out []int
	for i, p := range f.Parents {
		if len(p) == 0 {
			out = append(out, i)
		}
	}

	return out
}

// Forest builds the aggregation forest of kd.
//
// Implementation:
//   - Stage 1: group nodes into levels and index every level by the labels of its
//     non-aggregated variables.
//   - Stage 2: for each node, find the matching node in every strictly more aggregated
//     level; keep as parents only the matches with no closer match in between.
//   - Stage 3: walk nodes from least to most aggregated and union leaf sets upward.
//
// Errors:
//   - ErrInvalidKeyData when the structure has no leaf, or an aggregate covers none.
//
// Complexity:
//   - Time O(n·L²·k) for n nodes, L levels, k variables; Space O(n·leaves).
func (kd KeyData) Forest() (*Forest, error) {
	const tag = "Forest"
	n := len(kd.Nodes)
	levels := kd.Levels()

	// Stage 1
	lookup := make([]map[string]int, len(levels))
	for li, lv := range levels {
		lookup[li] = make(map[string]int, len(lv.Nodes))
		for _, i := range lv.Nodes {
			lookup[li][matchKey(kd.Nodes[i], lv.pattern)] = i
		}
	}

	// Stage 2
	f := &Forest{
		Parents:  make([][]int, n),
		Children: make([][]int, n),
		LeafSets: make([][]int, n),
		Leaves:   kd.Leaves(),
	}
	if len(f.Leaves) == 0 {
		return nil, hierarchyErrorf(tag, fmt.Errorf("no leaf node: %w", ErrInvalidKeyData))
	}
	for i, node := range kd.Nodes {
		own := node.aggPattern()
		var hits []int // level indices holding a match
		for li, lv := range levels {
			if !strictSuperset(lv.pattern, own) {
				continue
			}
			if _, ok := lookup[li][matchKey(node, lv.pattern)]; ok {
				hits = append(hits, li)
			}
		}
		for _, li := range hits {
			closest := true
			for _, lj := range hits {
				if lj != li && strictSuperset(levels[li].pattern, levels[lj].pattern) {
					closest = false
					break
				}
			}
			if closest {
				p := lookup[li][matchKey(node, levels[li].pattern)]
				f.Parents[i] = append(f.Parents[i], p)
				f.Children[p] = append(f.Children[p], i)
			}
		}
	}
	for i := range f.Parents {
		sort.Ints(f.Parents[i])
		sort.Ints(f.Children[i])
	}

	// Stage 3
	column := make(map[int]int, len(f.Leaves))
	for c, leaf := range f.Leaves {
		column[leaf] = c
	}
	sets := make([]map[int]struct{}, n)
	for i := range sets {
		sets[i] = make(map[int]struct{})
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return depth(kd.Nodes[order[a]]) < depth(kd.Nodes[order[b]])
	})
	for _, i := range order {
		if kd.Nodes[i].IsLeaf() {
			sets[i][i] = struct{}{}
		}
		for _, p := range f.Parents[i] {
			for leaf := range sets[i] {
				sets[p][leaf] = struct{}{}
			}
		}
	}
	for i := range sets {
		if len(sets[i]) == 0 {
			return nil, hierarchyErrorf(tag, fmt.Errorf("node %s covers no leaf: %w", kd.ID(i), ErrInvalidKeyData))
		}
		ls := make([]int, 0, len(sets[i]))
		for leaf := range sets[i] {
			ls = append(ls, leaf)
		}
		sort.Slice(ls, func(a, b int) bool { return column[ls[a]] < column[ls[b]] })
		f.LeafSets[i] = ls
	}

	return f, nil
}

// matchKey joins the labels of the variables not aggregated under pattern.
func matchKey(n Node, pattern string) string {
	var b strings.Builder
	for j, v := range n.Values {
		if pattern[j] == '1' {
			continue
		}
		b.WriteString(v.Label)
		b.WriteByte(0)
	}

	return b.String()
}

// strictSuperset reports whether pattern a aggregates every variable b does, and more.
func strictSuperset(a, b string) bool {
	if a == b {
		return false
	}
	for j := 0; j < len(a); j++ {
		if b[j] == '1' && a[j] != '1' {
			return false
		}
	}

	return true
}

func depth(n Node) int {
	d := 0
	for _, v := range n.Values {
		if v.Aggregated {
			d++
		}
	}

	return d
}
