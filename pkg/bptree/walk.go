package bptree

import "fmt"

// VisitLeaf is called once per leaf in sibling-chain order during Walk.
type VisitLeaf func(off uint64, leaf *leafNode)

// Walk invokes fn on every leaf in ascending key order, following the
// firstLeafOffset -> next chain without descending from the root.
func (t *Tree) Walk(fn VisitLeaf) error {
	off := t.meta.firstLeafOffset
	for off != nullOffset {
		leaf, err := t.readLeaf(off)
		if err != nil {
			return err
		}
		fn(off, leaf)
		off = leaf.next
	}
	return nil
}

// CheckInvariants walks the whole tree structure and verifies its
// structural invariants: key ordering within and across nodes,
// parent-pointer consistency, underflow floors, leaf sibling-chain
// bidirectionality, balanced leaf depth, and node/leaf counts matching
// the metadata header. The sibling chains of internal nodes are not
// checked. It returns the first violation found, wrapped
// with enough context to locate it; a nil return means the tree is
// structurally sound.
func (t *Tree) CheckInvariants() error {
	leafDepth := -1
	nodeCount, leafCount := 0, 0

	var walkNode func(off, parent uint64, depth int, lowIncl, highIncl *Key) error
	walkNode = func(off, parent uint64, depth int, lowIncl, highIncl *Key) error {
		if depth == int(t.meta.height) {
			leaf, err := t.readLeaf(off)
			if err != nil {
				return err
			}
			leafCount++
			if leaf.parent != parent {
				return fmt.Errorf("bptree: leaf at %d has parent %d, want %d", off, leaf.parent, parent)
			}
			if leafDepth == -1 {
				leafDepth = depth
			} else if leafDepth != depth {
				return fmt.Errorf("bptree: leaf at %d sits at depth %d, other leaves at %d", off, depth, leafDepth)
			}
			if t.meta.leafCount > 1 && int(leaf.count) < minChildren {
				return fmt.Errorf("bptree: leaf at %d underflows with %d records", off, leaf.count)
			}
			for i := 0; i < int(leaf.count); i++ {
				k := leaf.entries[i].key
				if i > 0 && !keyLess(leaf.entries[i-1].key, k) {
					return fmt.Errorf("bptree: leaf at %d has out-of-order keys at slot %d", off, i)
				}
				if lowIncl != nil && keyLess(k, *lowIncl) {
					return fmt.Errorf("bptree: leaf at %d key %s below bound %s", off, k, *lowIncl)
				}
				if highIncl != nil && keyGreater(k, *highIncl) {
					return fmt.Errorf("bptree: leaf at %d key %s exceeds bound %s", off, k, *highIncl)
				}
			}
			return nil
		}

		node, err := t.readInternal(off)
		if err != nil {
			return err
		}
		nodeCount++
		if node.parent != parent {
			return fmt.Errorf("bptree: internal node at %d has parent %d, want %d", off, node.parent, parent)
		}
		if off != t.meta.rootOffset && int(node.count) < minChildren {
			return fmt.Errorf("bptree: internal node at %d underflows with %d children", off, node.count)
		}
		if off == t.meta.rootOffset && node.count < 2 && t.meta.nodeCount > 1 {
			return fmt.Errorf("bptree: non-leaf root at %d has fewer than 2 children", off)
		}

		for i := 0; i < int(node.count)-1; i++ {
			if i > 0 && !keyLess(node.entries[i-1].key, node.entries[i].key) {
				return fmt.Errorf("bptree: internal node at %d has out-of-order separators at slot %d", off, i)
			}
		}

		for i := 0; i < int(node.count); i++ {
			childLow := lowIncl
			childHigh := highIncl
			if i > 0 {
				k := node.entries[i-1].key
				childLow = &k
			}
			if i < int(node.count)-1 {
				k := node.entries[i].key
				childHigh = &k
			}
			if err := walkNode(node.entries[i].child, off, depth+1, childLow, childHigh); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walkNode(t.meta.rootOffset, nullOffset, 0, nil, nil); err != nil {
		return err
	}
	if uint64(nodeCount) != t.meta.nodeCount {
		return fmt.Errorf("bptree: walked %d internal nodes, metadata says %d", nodeCount, t.meta.nodeCount)
	}
	if uint64(leafCount) != t.meta.leafCount {
		return fmt.Errorf("bptree: walked %d leaves, metadata says %d", leafCount, t.meta.leafCount)
	}

	return t.checkSiblingChain()
}

// checkSiblingChain verifies the leaf-level doubly-linked list is
// bidirectionally consistent: following next from firstLeafOffset and
// then prev back must retrace the same path.
func (t *Tree) checkSiblingChain() error {
	var prevOff uint64 = nullOffset
	off := t.meta.firstLeafOffset
	count := 0
	for off != nullOffset {
		leaf, err := t.readLeaf(off)
		if err != nil {
			return err
		}
		if leaf.prev != prevOff {
			return fmt.Errorf("bptree: leaf at %d has prev %d, want %d", off, leaf.prev, prevOff)
		}
		prevOff = off
		off = leaf.next
		count++
	}
	if uint64(count) != t.meta.leafCount {
		return fmt.Errorf("bptree: sibling chain has %d leaves, metadata says %d", count, t.meta.leafCount)
	}
	return nil
}
