package bptree

// Update overwrites the value stored for key if an exactly-equal key is
// present. It returns ErrKeyNotEqual when the descent lands on a slot
// whose key differs from the query (as opposed to ErrNotFound, when
// there is no candidate slot at all — every existing key in the leaf
// compares less than the query).
func (t *Tree) Update(key Key, value Value) error {
	leafOff, err := t.descend(key)
	if err != nil {
		return err
	}
	leaf, err := t.readLeaf(leafOff)
	if err != nil {
		return err
	}

	i := findLeaf(leaf, key)
	if i >= int(leaf.count) {
		return ErrNotFound
	}
	if !keyEqual(leaf.entries[i].key, key) {
		return ErrKeyNotEqual
	}

	leaf.entries[i].value = value
	return t.writeLeaf(leafOff, leaf)
}
