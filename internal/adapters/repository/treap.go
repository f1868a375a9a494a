package repository

// Treap ordered so that in-order traversal yields the leaderboard from best to
// worst: points DESC, total score DESC, then insertion sequence ASC. Nodes
// carry subtree sizes so pages can skip whole subtrees.

type rankKey struct {
	points     int64
	totalScore int64
	seq        int64
}

// before reports whether a ranks ahead of b.
func (a rankKey) before(b rankKey) bool {
	if a.points != b.points {
		return a.points > b.points
	}
	if a.totalScore != b.totalScore {
		return a.totalScore > b.totalScore
	}
	return a.seq < b.seq
}

type node struct {
	key   rankKey
	user  string
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, key rankKey, user string, prio uint64) *node {
	if n == nil {
		return &node{key: key, user: user, prio: prio, size: 1}
	}
	if key.before(n.key) {
		n.left = insert(n.left, key, user, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, key, user, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, key rankKey) *node {
	if n == nil {
		return nil
	}
	switch {
	case key == n.key:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, key)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, key)
		}
	case key.before(n.key):
		n.left = deleteNode(n.left, key)
	default:
		n.right = deleteNode(n.right, key)
	}
	fix(n)
	return n
}

// collectRange appends up to limit users starting at the offset-th position.
func collectRange(n *node, offset, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	ls := nsize(n.left)
	if offset < ls {
		collectRange(n.left, offset, limit, out)
	}
	if len(*out) >= limit {
		return
	}
	if offset <= ls {
		*out = append(*out, n.user)
	}
	ro := offset - ls - 1
	if ro < 0 {
		ro = 0
	}
	collectRange(n.right, ro, limit, out)
}
