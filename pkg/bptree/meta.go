package bptree

import "encoding/binary"

// Order is the tree's fan-out M: the maximum number of children any node
// holds.
const Order = 20

// minChildren is the underflow floor ⌈M/2⌉ used throughout insert/remove.
const minChildren = (Order + 1) / 2

// metaSize is the fixed width of the metadata header: nine unsigned
// 64-bit fields, little-endian. Field order and width are pinned so files
// stay portable across implementations.
const metaSize = 9 * 8

// metadata mirrors the header stored at file offset 0.
type metadata struct {
	order          uint64
	valueSize      uint64
	keySize        uint64
	nodeCount      uint64
	leafCount      uint64
	height         uint64
	watermark      uint64
	rootOffset     uint64
	firstLeafOffset uint64
}

// Info is a read-only snapshot of the metadata header, returned by
// Tree.Info() for callers (tests, audit tooling) that want to inspect
// tree shape without reaching into package internals.
type Info struct {
	Order           uint64
	ValueSize       uint64
	KeySize         uint64
	NodeCount       uint64
	LeafCount       uint64
	Height          uint64
	Watermark       uint64
	RootOffset      uint64
	FirstLeafOffset uint64
}

func (m metadata) snapshot() Info {
	return Info{
		Order:           m.order,
		ValueSize:       m.valueSize,
		KeySize:         m.keySize,
		NodeCount:       m.nodeCount,
		LeafCount:       m.leafCount,
		Height:          m.height,
		Watermark:       m.watermark,
		RootOffset:      m.rootOffset,
		FirstLeafOffset: m.firstLeafOffset,
	}
}

func encodeMeta(m metadata) []byte {
	buf := make([]byte, metaSize)
	binary.LittleEndian.PutUint64(buf[0:8], m.order)
	binary.LittleEndian.PutUint64(buf[8:16], m.valueSize)
	binary.LittleEndian.PutUint64(buf[16:24], m.keySize)
	binary.LittleEndian.PutUint64(buf[24:32], m.nodeCount)
	binary.LittleEndian.PutUint64(buf[32:40], m.leafCount)
	binary.LittleEndian.PutUint64(buf[40:48], m.height)
	binary.LittleEndian.PutUint64(buf[48:56], m.watermark)
	binary.LittleEndian.PutUint64(buf[56:64], m.rootOffset)
	binary.LittleEndian.PutUint64(buf[64:72], m.firstLeafOffset)
	return buf
}

func decodeMeta(buf []byte) metadata {
	return metadata{
		order:           binary.LittleEndian.Uint64(buf[0:8]),
		valueSize:       binary.LittleEndian.Uint64(buf[8:16]),
		keySize:         binary.LittleEndian.Uint64(buf[16:24]),
		nodeCount:       binary.LittleEndian.Uint64(buf[24:32]),
		leafCount:       binary.LittleEndian.Uint64(buf[32:40]),
		height:          binary.LittleEndian.Uint64(buf[40:48]),
		watermark:       binary.LittleEndian.Uint64(buf[48:56]),
		rootOffset:      binary.LittleEndian.Uint64(buf[56:64]),
		firstLeafOffset: binary.LittleEndian.Uint64(buf[64:72]),
	}
}
