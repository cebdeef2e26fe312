package bptree

import (
	"os"

	"bptree/pkg/blockio"
)

// Tree is a disk-resident B+ tree index: an ordered mapping from
// fixed-size Keys to fixed-size Values, persisted as a single file of
// fixed-width blocks. All operations are synchronous; single-writer,
// single-reader access is a precondition.
type Tree struct {
	h     *blockio.Handle
	meta  metadata
	alloc *blockio.Allocator
}

// Open opens path as a B+ tree file. With forceEmpty false, an existing
// file is read back from its metadata header; if the header can't be
// read (missing or empty file), Open falls back to empty initialization.
// With forceEmpty true, the file is truncated and reinitialized
// unconditionally.
func Open(path string, forceEmpty bool) (*Tree, error) {
	t := &Tree{h: blockio.NewHandle(path, os.O_CREATE|os.O_RDWR, 0o666)}

	if forceEmpty {
		if err := t.h.Acquire(); err != nil {
			return nil, wrapOpen(err)
		}
		if err := t.h.File().Truncate(0); err != nil {
			t.h.Release()
			return nil, wrapOpen(err)
		}
		t.h.Release()
		if err := t.initEmpty(); err != nil {
			return nil, wrapOpen(err)
		}
		return t, nil
	}

	buf, err := blockio.ReadBlock(t.h, 0, metaSize)
	if err != nil {
		if err := t.initEmpty(); err != nil {
			return nil, wrapOpen(err)
		}
		return t, nil
	}
	t.meta = decodeMeta(buf)
	t.alloc = blockio.NewAllocator(t.meta.watermark)
	return t, nil
}

// initEmpty writes the empty-tree layout: a fresh metadata header, a
// single root internal node with one child entry, and an empty leaf
// referenced by that entry.
func (t *Tree) initEmpty() error {
	t.meta = metadata{
		order:     Order,
		valueSize: ValueSize,
		keySize:   KeySize,
		height:    1,
		watermark: metaSize,
	}
	t.alloc = blockio.NewAllocator(metaSize)

	rootOff := t.alloc.Alloc(internalBlockSize)
	leafOff := t.alloc.Alloc(leafBlockSize)

	root := &internalNode{parent: nullOffset, prev: nullOffset, next: nullOffset, count: 1}
	root.entries[0] = indexEntry{child: leafOff}

	leaf := &leafNode{parent: rootOff, prev: nullOffset, next: nullOffset, count: 0}

	t.meta.rootOffset = rootOff
	t.meta.firstLeafOffset = leafOff
	t.meta.nodeCount = 1
	t.meta.leafCount = 1
	t.meta.watermark = t.alloc.Watermark()

	if err := t.persistMeta(); err != nil {
		return err
	}
	if err := t.writeInternal(rootOff, root); err != nil {
		return err
	}
	return t.writeLeaf(leafOff, leaf)
}

// Close closes the backing file if it is currently open. Tree operations
// do not keep the file open between calls (each block read or write opens
// and closes it), so Close usually has nothing to close, and operations
// after Close reopen the file and still succeed.
func (t *Tree) Close() error {
	if t.h.File() != nil {
		return t.h.File().Close()
	}
	return nil
}

// Info returns a snapshot of the metadata header.
func (t *Tree) Info() Info {
	return t.meta.snapshot()
}

func (t *Tree) persistMeta() error {
	t.meta.watermark = t.alloc.Watermark()
	return blockio.WriteBlock(t.h, 0, encodeMeta(t.meta))
}

func (t *Tree) readInternal(off uint64) (*internalNode, error) {
	buf, err := blockio.ReadBlock(t.h, int64(off), internalBlockSize)
	if err != nil {
		return nil, err
	}
	return decodeInternal(buf), nil
}

func (t *Tree) writeInternal(off uint64, n *internalNode) error {
	return blockio.WriteBlock(t.h, int64(off), encodeInternal(n))
}

func (t *Tree) readLeaf(off uint64) (*leafNode, error) {
	buf, err := blockio.ReadBlock(t.h, int64(off), leafBlockSize)
	if err != nil {
		return nil, err
	}
	return decodeLeaf(buf), nil
}

func (t *Tree) writeLeaf(off uint64, n *leafNode) error {
	return blockio.WriteBlock(t.h, int64(off), encodeLeaf(n))
}

// writeRaw writes data at an arbitrary absolute offset, used by the
// header-field patches (parent/prev rewrites) that touch less than a
// full block.
func (t *Tree) writeRaw(offset int64, data []byte) error {
	return blockio.WriteBlock(t.h, offset, data)
}

// allocInternal hands out a fresh internal-node block offset, bumps the
// node count, and persists the header immediately, mirroring createNode:
// the count bump and the watermark advance are never left unflushed
// across a return to the caller.
func (t *Tree) allocInternal() (uint64, error) {
	t.meta.nodeCount++
	off := t.alloc.Alloc(internalBlockSize)
	return off, t.persistMeta()
}

// allocLeaf hands out a fresh leaf block offset and bumps the leaf count,
// persisting the header the same way allocInternal does.
func (t *Tree) allocLeaf() (uint64, error) {
	t.meta.leafCount++
	off := t.alloc.Alloc(leafBlockSize)
	return off, t.persistMeta()
}

// freeInternal/freeLeaf are accounting-only: a merged-away block is
// abandoned in place, never relocated or reused. No free list. Each
// persists the header immediately, mirroring removeNode.
func (t *Tree) freeInternal() error {
	t.meta.nodeCount--
	return t.persistMeta()
}

func (t *Tree) freeLeaf() error {
	t.meta.leafCount--
	return t.persistMeta()
}
