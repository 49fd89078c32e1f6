package view

import (
	"errors"
	"fmt"
)

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchSetText     PatchOp = iota + 1 // Update text content
	PatchSetAttr                        // Set/update attribute
	PatchRemoveAttr                     // Remove attribute
	PatchInsertNode                     // Insert new child
	PatchRemoveNode                     // Remove node
	PatchReplaceNode                    // Replace node entirely
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchSetText:
		return "SetText"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchInsertNode:
		return "InsertNode"
	case PatchRemoveNode:
		return "RemoveNode"
	case PatchReplaceNode:
		return "ReplaceNode"
	default:
		return "Unknown"
	}
}

// Patch is a single operation on a node tree. Path is the list of child
// indexes leading from the root to the target node; for PatchInsertNode
// the target is the parent and Index the insert position.
type Patch struct {
	Op    PatchOp
	Path  []int
	Key   string
	Value string
	Node  *Node
	Index int
}

// ErrBadPath is returned by Apply when a patch path does not address a
// node of the tree.
var ErrBadPath = errors.New("view: patch path does not exist")

// Apply applies patches to the tree rooted at root, in place. Inserted and
// replacing nodes are copied, so the tree never shares nodes with the
// patch source.
func Apply(root *Node, patches []Patch) error {
	for _, p := range patches {
		if err := apply(root, p); err != nil {
			return fmt.Errorf("%s %v: %w", p.Op, p.Path, err)
		}
	}
	return nil
}

func apply(root *Node, p Patch) error {
	target, parent, idx := resolve(root, p.Path)
	if target == nil {
		return ErrBadPath
	}

	switch p.Op {
	case PatchSetText:
		target.Text = p.Value
	case PatchSetAttr:
		if target.Attrs == nil {
			target.Attrs = make(Attrs)
		}
		target.Attrs[p.Key] = p.Value
	case PatchRemoveAttr:
		delete(target.Attrs, p.Key)
	case PatchInsertNode:
		if p.Index < 0 || p.Index > len(target.Children) {
			return ErrBadPath
		}
		target.Children = append(target.Children, nil)
		copy(target.Children[p.Index+1:], target.Children[p.Index:])
		target.Children[p.Index] = p.Node.Clone()
	case PatchRemoveNode:
		if parent == nil {
			return ErrBadPath
		}
		parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)
	case PatchReplaceNode:
		if parent == nil {
			*target = *p.Node.Clone()
			return nil
		}
		parent.Children[idx] = p.Node.Clone()
	default:
		return fmt.Errorf("view: unknown patch op %d", p.Op)
	}
	return nil
}

func resolve(root *Node, path []int) (target, parent *Node, idx int) {
	target = root
	for _, i := range path {
		if target == nil || i < 0 || i >= len(target.Children) {
			return nil, nil, 0
		}
		parent, idx = target, i
		target = target.Children[i]
	}
	return target, parent, idx
}
