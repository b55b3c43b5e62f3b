package runtime

import (
	"github.com/aretw0/quadrat/pkg/domain"
)

// Node is the runtime tree materialized from a Description: an ordered
// sequence of child nodes, each either a trial node or another timeline
// node. The description stays immutable; all iteration state lives in the
// controllers for the duration of one entry into the node.
type Node struct {
	desc     *domain.Description
	children []*Node
	isTrial  bool
	depth    int
}

// Expand validates a description and materializes it into a node tree.
// Structural violations are reported here, before any trial runs.
func Expand(desc *domain.Description) (*Node, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return expand(desc, 0), nil
}

func expand(desc *domain.Description, depth int) *Node {
	n := &Node{
		desc:    desc,
		isTrial: desc.IsTrial(),
		depth:   depth,
	}
	for _, child := range desc.Timeline {
		n.children = append(n.children, expand(child, depth+1))
	}
	return n
}

// Name returns the description's label, or its trial type for unnamed
// trials.
func (n *Node) Name() string {
	if n.desc.Name != "" {
		return n.desc.Name
	}
	return n.desc.Type
}

// TrialCount returns the number of trial leaves in the subtree, counting
// each leaf once regardless of repetitions or sampling.
func (n *Node) TrialCount() int {
	if n.isTrial {
		return 1
	}
	total := 0
	for _, child := range n.children {
		total += child.TrialCount()
	}
	return total
}
