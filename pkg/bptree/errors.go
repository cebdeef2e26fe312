package bptree

import (
	"fmt"

	"github.com/pkg/errors"

	"bptree/pkg/blockio"
)

// Discriminated error kinds returned by tree operations.
var (
	// ErrIoFailure covers any underlying read/write/seek error. It is
	// fatal to the current operation; on-disk structure may be partially
	// written.
	ErrIoFailure = blockio.ErrIoFailure

	// ErrNotFound is returned when a key is absent at a lookup/remove/
	// update descent endpoint.
	ErrNotFound = errors.New("bptree: key not found")

	// ErrDuplicateKey is returned by Insert when the leaf already holds
	// an equal key.
	ErrDuplicateKey = errors.New("bptree: duplicate key")

	// ErrKeyNotEqual is returned by Update when the descent lands on a
	// slot whose key differs from the query — distinct from ErrNotFound
	// so callers can tell "no such slot" from "slot exists, wrong key."
	ErrKeyNotEqual = errors.New("bptree: key not equal at update slot")

	// ErrBadRange is returned by Range when lo > hi.
	ErrBadRange = errors.New("bptree: bad range: lo > hi")

	// ErrOpen is returned by Open when the path cannot be opened and
	// forceEmpty is false.
	ErrOpen = errors.New("bptree: open failed")
)

func wrapOpen(err error) error {
	return fmt.Errorf("%w: %w", ErrOpen, err)
}
