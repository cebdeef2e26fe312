package bptree

import "encoding/binary"

// Insert adds key -> value. It returns ErrDuplicateKey without modifying
// the tree if key is already present.
func (t *Tree) Insert(key Key, value Value) error {
	leafOff, err := t.descend(key)
	if err != nil {
		return err
	}
	leaf, err := t.readLeaf(leafOff)
	if err != nil {
		return err
	}

	i := findLeaf(leaf, key)
	if i < int(leaf.count) && keyEqual(leaf.entries[i].key, key) {
		return ErrDuplicateKey
	}

	if leaf.count < Order {
		insertRecordAt(leaf, i, record{key: key, value: value})
		return t.writeLeaf(leafOff, leaf)
	}

	return t.splitLeafAndInsert(leafOff, leaf, key, value)
}

// insertRecordAt shifts entries[i:count] right by one slot and places rec
// at i.
func insertRecordAt(leaf *leafNode, i int, rec record) {
	for j := int(leaf.count); j > i; j-- {
		leaf.entries[j] = leaf.entries[j-1]
	}
	leaf.entries[i] = rec
	leaf.count++
}

// splitLeafAndInsert handles leaf overflow: allocate a right sibling,
// splice it into the sibling chain, divide the records, insert the new
// record into whichever half it belongs in, then promote the new right
// leaf's first key as a separator into the parent.
func (t *Tree) splitLeafAndInsert(leafOff uint64, leaf *leafNode, key Key, value Value) error {
	newOff, err := t.allocLeaf()
	if err != nil {
		return err
	}
	newLeaf := &leafNode{parent: leaf.parent, prev: leafOff, next: leaf.next}

	if leaf.next != nullOffset {
		if err := t.setBlockPrev(leaf.next, newOff); err != nil {
			return err
		}
	}
	leaf.next = newOff

	mid := Order / 2
	if keyGreater(key, leaf.entries[mid].key) {
		mid++
	}

	copy(newLeaf.entries[:Order-mid], leaf.entries[mid:Order])
	newLeaf.count = uint64(Order - mid)
	leaf.count = uint64(mid)

	// mid was bumped past Order/2 exactly when the incoming key compared
	// greater than the pre-split midpoint key, so the key belongs in the
	// right half whenever that happened.
	if mid > Order/2 {
		i := findLeaf(newLeaf, key)
		insertRecordAt(newLeaf, i, record{key: key, value: value})
	} else {
		i := findLeaf(leaf, key)
		insertRecordAt(leaf, i, record{key: key, value: value})
	}

	if err := t.writeLeaf(leafOff, leaf); err != nil {
		return err
	}
	if err := t.writeLeaf(newOff, newLeaf); err != nil {
		return err
	}

	sep := newLeaf.entries[0].key
	return t.insertSeparator(leaf.parent, sep, leafOff, newOff)
}

// insertSeparator promotes a separator key into nodeOff, recursively
// splitting and propagating toward the root as needed. When nodeOff is
// the null offset, the node just below was the root and got split, so a
// fresh root is created with left and right as its two children.
func (t *Tree) insertSeparator(nodeOff uint64, sepKey Key, left, right uint64) error {
	if nodeOff == nullOffset {
		rootOff, err := t.allocInternal()
		if err != nil {
			return err
		}
		root := &internalNode{parent: nullOffset, prev: nullOffset, next: nullOffset, count: 2}
		root.entries[0] = indexEntry{key: sepKey, child: left}
		root.entries[1] = indexEntry{child: right}

		t.meta.rootOffset = rootOff
		t.meta.height++
		if err := t.persistMeta(); err != nil {
			return err
		}
		if err := t.writeInternal(rootOff, root); err != nil {
			return err
		}
		if err := t.setBlockParent(left, rootOff); err != nil {
			return err
		}
		return t.setBlockParent(right, rootOff)
	}

	node, err := t.readInternal(nodeOff)
	if err != nil {
		return err
	}

	if node.count < Order {
		insertSeparatorNoSplit(node, sepKey, right)
		return t.writeInternal(nodeOff, node)
	}

	return t.splitInternalAndInsert(nodeOff, node, sepKey, right)
}

// insertSeparatorNoSplit inserts (sepKey, right) into node, which has
// room. The existing entry occupying the landing slot keeps its child as
// the new entry's left side; the following slot's child becomes right.
func insertSeparatorNoSplit(node *internalNode, sepKey Key, right uint64) {
	where := findInternal(node, sepKey)
	count := int(node.count)
	for j := count; j > where; j-- {
		node.entries[j] = node.entries[j-1]
	}
	node.entries[where].key = sepKey
	node.entries[where+1].child = right
	node.count++
}

// splitInternalAndInsert handles internal-node overflow: allocate a
// right sibling, splice into the sibling chain at this depth, divide the
// entries, insert the new separator into whichever half it belongs in,
// reparent the moved children, then recurse one level up.
func (t *Tree) splitInternalAndInsert(nodeOff uint64, node *internalNode, sepKey Key, right uint64) error {
	newOff, err := t.allocInternal()
	if err != nil {
		return err
	}
	newNode := &internalNode{parent: node.parent, prev: nodeOff, next: node.next}

	if node.next != nullOffset {
		if err := t.setBlockPrev(node.next, newOff); err != nil {
			return err
		}
	}
	node.next = newOff

	count := int(node.count) // == Order
	mid := (count - 1) / 2
	toRight := keyGreater(sepKey, node.entries[mid].key)
	if toRight {
		mid++
	}
	if toRight && keyLess(sepKey, node.entries[mid].key) {
		mid--
	}
	midKey := node.entries[mid].key

	copy(newNode.entries[:count-mid-1], node.entries[mid+1:count])
	newNode.count = uint64(count - mid - 1)
	node.count = uint64(mid + 1)

	if toRight {
		insertSeparatorNoSplit(newNode, sepKey, right)
	} else {
		insertSeparatorNoSplit(node, sepKey, right)
	}

	if err := t.writeInternal(nodeOff, node); err != nil {
		return err
	}
	if err := t.writeInternal(newOff, newNode); err != nil {
		return err
	}
	if err := t.reparentChildren(newNode, newOff); err != nil {
		return err
	}

	return t.insertSeparator(node.parent, midKey, nodeOff, newOff)
}

// reparentChildren rewrites the parent field of every child referenced
// by node's entries[0:count] to parentOff. It works uniformly for
// internal and leaf children because both block kinds share an
// identical header layout (parent is always the first 8 bytes).
func (t *Tree) reparentChildren(node *internalNode, parentOff uint64) error {
	for i := 0; i < int(node.count); i++ {
		if err := t.setBlockParent(node.entries[i].child, parentOff); err != nil {
			return err
		}
	}
	return nil
}

// setBlockParent and setBlockPrev patch a single header field of the
// block at off without decoding the rest of it, exploiting the shared
// header framing between internal nodes and leaves.
func (t *Tree) setBlockParent(off, parent uint64) error {
	return t.writeHeaderField(off, 0, parent)
}

func (t *Tree) setBlockPrev(off, prev uint64) error {
	return t.writeHeaderField(off, 8, prev)
}

func (t *Tree) writeHeaderField(blockOff uint64, fieldOff int64, value uint64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)
	return t.writeRaw(int64(blockOff)+fieldOff, buf)
}
