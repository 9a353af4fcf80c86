package syntax

// Visitor receives pre-order (Enter) and post-order (Exit) callbacks.
// depth is the number of ancestors of n; the root has depth 0.
type Visitor interface {
	Enter(n *Node, depth int) error
	Exit(n *Node, depth int) error
}

type frame struct {
	node  *Node
	depth int
	exit  bool
}

// Walk visits the tree rooted at root depth-first using an explicit stack,
// so arbitrarily deep trees cannot exhaust the goroutine stack. The first
// error returned by the visitor stops the walk and is returned.
func Walk(root *Node, v Visitor) error {
	if root == nil {
		return nil
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.exit {
			if err := v.Exit(top.node, top.depth); err != nil {
				return err
			}
			continue
		}

		if err := v.Enter(top.node, top.depth); err != nil {
			return err
		}
		stack = append(stack, frame{node: top.node, depth: top.depth, exit: true})
		for i := len(top.node.Children) - 1; i >= 0; i-- {
			if c := top.node.Children[i]; c != nil {
				stack = append(stack, frame{node: c, depth: top.depth + 1})
			}
		}
	}
	return nil
}

// Inspect calls fn for every node in pre-order. Returning false from fn
// skips the node's children.
func Inspect(root *Node, fn func(*Node) bool) {
	if root == nil {
		return
	}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			if c := n.Children[i]; c != nil {
				stack = append(stack, c)
			}
		}
	}
}

// Count returns the number of nodes in the tree rooted at root.
func Count(root *Node) int {
	total := 0
	Inspect(root, func(*Node) bool {
		total++
		return true
	})
	return total
}
