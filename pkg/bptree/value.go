package bptree

// ValueSize is the fixed width of a record value. The tree treats values
// as opaque blobs: it never inspects or orders by their contents.
const ValueSize = 24

// Value is a fixed-size opaque blob attached to each key.
type Value [ValueSize]byte

// NewValue builds a Value from a byte slice, zero-padding (or truncating)
// to ValueSize bytes.
func NewValue(b []byte) Value {
	var v Value
	copy(v[:], b)
	return v
}
