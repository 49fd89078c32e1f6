package view

import "slices"

// Diff compares two trees and returns the patches turning prev into next.
// Children are matched by position.
func Diff(prev, next *Node) []Patch {
	var patches []Patch
	diff(prev, next, nil, &patches)
	return patches
}

func diff(prev, next *Node, path []int, patches *[]Patch) {
	if prev == nil || next == nil {
		if next != nil {
			*patches = append(*patches, Patch{Op: PatchReplaceNode, Path: path, Node: next})
		}
		return
	}

	if prev.Kind != next.Kind || prev.Tag != next.Tag {
		*patches = append(*patches, Patch{Op: PatchReplaceNode, Path: path, Node: next})
		return
	}

	switch prev.Kind {
	case KindText:
		if prev.Text != next.Text {
			*patches = append(*patches, Patch{Op: PatchSetText, Path: path, Value: next.Text})
		}
		return
	case KindRaw:
		if prev.Text != next.Text {
			*patches = append(*patches, Patch{Op: PatchReplaceNode, Path: path, Node: next})
		}
		return
	case KindElement:
		diffAttrs(prev, next, path, patches)
	}

	diffChildren(prev, next, path, patches)
}

func diffAttrs(prev, next *Node, path []int, patches *[]Patch) {
	keys := make([]string, 0, len(prev.Attrs)+len(next.Attrs))
	for k := range prev.Attrs {
		keys = append(keys, k)
	}
	for k := range next.Attrs {
		if _, ok := prev.Attrs[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	for _, k := range keys {
		pv, inPrev := prev.Attrs[k]
		nv, inNext := next.Attrs[k]
		switch {
		case !inNext:
			*patches = append(*patches, Patch{Op: PatchRemoveAttr, Path: path, Key: k})
		case !inPrev || pv != nv:
			*patches = append(*patches, Patch{Op: PatchSetAttr, Path: path, Key: k, Value: nv})
		}
	}
}

func diffChildren(prev, next *Node, path []int, patches *[]Patch) {
	common := min(len(prev.Children), len(next.Children))

	for i := 0; i < common; i++ {
		diff(prev.Children[i], next.Children[i], childPath(path, i), patches)
	}

	// Trailing removals go last-first so earlier indexes stay valid.
	for i := len(prev.Children) - 1; i >= common; i-- {
		*patches = append(*patches, Patch{Op: PatchRemoveNode, Path: childPath(path, i)})
	}

	for i := common; i < len(next.Children); i++ {
		*patches = append(*patches, Patch{
			Op:    PatchInsertNode,
			Path:  slices.Clone(path),
			Index: i,
			Node:  next.Children[i],
		})
	}
}

func childPath(path []int, i int) []int {
	p := make([]int, len(path)+1)
	copy(p, path)
	p[len(path)] = i
	return p
}
