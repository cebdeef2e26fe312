package blockio

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrIoFailure is the sentinel every wrapped read/write/seek error folds
// into, so callers can do errors.Is(err, blockio.ErrIoFailure) regardless
// of which underlying OS call failed.
var ErrIoFailure = errors.New("blockio: io failure")

// ReadBlock reads exactly size bytes at offset. A short read is reported
// as ErrIoFailure — callers never see a partially filled buffer.
func ReadBlock(h *Handle, offset int64, size int) ([]byte, error) {
	if err := h.Acquire(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIoFailure, err)
	}
	defer h.Release()

	buf := make([]byte, size)
	n, err := h.File().ReadAt(buf, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIoFailure,
			errors.Wrapf(err, "read %d bytes at offset %d", size, offset))
	}
	if n != size {
		return nil, fmt.Errorf("%w: %s", ErrIoFailure,
			errors.Errorf("short read at offset %d: got %d of %d bytes", offset, n, size))
	}
	return buf, nil
}

// WriteBlock writes data at offset. No implicit flush contract beyond
// whatever the OS and filesystem provide — the core is not a WAL.
func WriteBlock(h *Handle, offset int64, data []byte) error {
	if err := h.Acquire(); err != nil {
		return fmt.Errorf("%w: %w", ErrIoFailure, err)
	}
	defer h.Release()

	n, err := h.File().WriteAt(data, offset)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIoFailure,
			errors.Wrapf(err, "write %d bytes at offset %d", len(data), offset))
	}
	if n != len(data) {
		return fmt.Errorf("%w: %s", ErrIoFailure,
			errors.Errorf("short write at offset %d: wrote %d of %d bytes", offset, n, len(data)))
	}
	return nil
}

// Allocator hands out fresh offsets by bumping a caller-owned watermark.
// There is no free list: every call advances the watermark and the file
// grows monotonically. The allocator does not persist the watermark
// itself — the caller (the metadata header) is responsible for making the
// bump durable before the allocation is considered real.
type Allocator struct {
	watermark uint64
}

// NewAllocator starts an allocator at the given watermark, typically read
// back from a persisted metadata header.
func NewAllocator(watermark uint64) *Allocator {
	return &Allocator{watermark: watermark}
}

// Alloc returns the current watermark and advances it by size.
func (a *Allocator) Alloc(size uint64) uint64 {
	off := a.watermark
	a.watermark += size
	return off
}

// Watermark reports the next free offset.
func (a *Allocator) Watermark() uint64 {
	return a.watermark
}

// SetWatermark overrides the watermark, used when re-synchronizing the
// allocator against a freshly read metadata header.
func (a *Allocator) SetWatermark(w uint64) {
	a.watermark = w
}
