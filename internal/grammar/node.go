package grammar

// Node is a parsed element of a SIP grammar production. It mirrors the
// shape of an ABNF parse tree: Value holds the exact substring this
// element matched, and Children holds nested productions in the order
// they were matched, which lets callers reach specific sub-elements
// positionally (e.g. Children[0]) or recursively by key.
type Node struct {
	Key      string
	Value    []byte
	Children []*Node
}

// Nodes is an ordered list of sibling nodes, typically the repeated
// matches of a single production (e.g. one "via-parm" per Via header hop).
type Nodes []*Node

// String returns the substring this node matched.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	return string(n.Value)
}

// Len returns the length of the substring this node matched.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.Value)
}

// IsEmpty reports whether the node matched no input.
func (n *Node) IsEmpty() bool {
	return n == nil || len(n.Value) == 0
}

// GetNode searches the node and its descendants, depth-first, for the
// first node with the given key.
func (n *Node) GetNode(key string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	if n.Key == key {
		return n, true
	}
	for _, c := range n.Children {
		if sn, ok := c.GetNode(key); ok {
			return sn, true
		}
	}
	return nil, false
}

// GetNodes searches the node and its descendants for every node with the
// given key, in depth-first pre-order.
func (n *Node) GetNodes(key string) Nodes {
	if n == nil {
		return nil
	}
	var res Nodes
	if n.Key == key {
		res = append(res, n)
	}
	for _, c := range n.Children {
		res = append(res, c.GetNodes(key)...)
	}
	return res
}

// Contains reports whether the node or any of its descendants carries the
// given key.
func (n *Node) Contains(key string) bool {
	_, ok := n.GetNode(key)
	return ok
}

func newNode(key string, value []byte, children ...*Node) *Node {
	return &Node{Key: key, Value: value, Children: children}
}

func leaf(key string, value []byte) *Node {
	return newNode(key, value)
}
