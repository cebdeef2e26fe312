// Package blockio implements the bottom layer of the B+ tree: positional
// reads and writes against a single backing file, plus the bump allocator
// that hands out fresh byte offsets. Nothing here knows about keys, nodes,
// or tree structure — it only moves fixed-size byte slices in and out of a
// file at absolute offsets.
package blockio

import (
	"os"

	"github.com/pkg/errors"
)

// Handle wraps a backing file with a reentrancy counter around its
// lifecycle: the file is opened on the first Acquire and closed on the
// last matching Release, so a tree operation that nests many individual
// block reads/writes under one outer Acquire pays for exactly one open.
//
// The counter is a plain int, not an atomic or a mutex-guarded field.
// Single-writer, single-reader access is a precondition of this whole
// package; no lock is asserted here.
type Handle struct {
	path string
	flag int
	perm os.FileMode

	f     *os.File
	level int
}

// NewHandle builds a Handle for path. The file is not opened until the
// first Acquire.
func NewHandle(path string, flag int, perm os.FileMode) *Handle {
	return &Handle{path: path, flag: flag, perm: perm}
}

// Acquire opens the backing file if this is the outermost acquisition and
// bumps the reentrancy counter.
func (h *Handle) Acquire() error {
	if h.level == 0 {
		f, err := os.OpenFile(h.path, h.flag, h.perm)
		if err != nil {
			return errors.Wrapf(err, "blockio: open %s", h.path)
		}
		h.f = f
	}
	h.level++
	return nil
}

// Release drops the reentrancy counter and closes the backing file once
// the outermost acquisition is released.
func (h *Handle) Release() error {
	if h.level == 0 {
		return errors.Errorf("blockio: release without matching acquire on %s", h.path)
	}
	h.level--
	if h.level == 0 {
		f := h.f
		h.f = nil
		return f.Close()
	}
	return nil
}

// File returns the currently open *os.File. Callers must hold an
// outstanding Acquire.
func (h *Handle) File() *os.File {
	return h.f
}

// Path reports the backing file path.
func (h *Handle) Path() string {
	return h.path
}

// Size reports the current file size in bytes. Acquire must be held.
func (h *Handle) Size() (int64, error) {
	st, err := h.f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "blockio: stat")
	}
	return st.Size(), nil
}
