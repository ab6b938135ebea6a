package jsruntime

import (
	"github.com/rs/zerolog/log"
	"github.com/tansive/jsbridge/internal/common/apperrors"
)

// heapHeaderSize is the block reserved through the allocator when a heap is created.
const heapHeaderSize = 256

// AllocFunc returns a slice of exactly size bytes, or nil when the allocation fails.
type AllocFunc func(udata any, size int) []byte

// ReallocFunc resizes buf to size bytes preserving its contents, or returns nil on failure.
// buf is left valid when resizing fails.
type ReallocFunc func(udata any, buf []byte, size int) []byte

// FreeFunc releases a slice obtained from the matching AllocFunc or ReallocFunc.
type FreeFunc func(udata any, buf []byte)

// FatalFunc is called on unrecoverable errors. It is not expected to return; if it does,
// the caller panics with *FatalError.
type FatalFunc func(udata any, msg string)

// HeapConfig carries the host side of a context: allocation functions, the opaque
// user data handed back on every callback, and the fatal error handler.
// Leaving all three allocation functions nil selects the defaults.
type HeapConfig struct {
	Alloc    AllocFunc
	Realloc  ReallocFunc
	Free     FreeFunc
	UserData any
	Fatal    FatalFunc
}

type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string {
	return "fatal error: " + e.Msg
}

type heap struct {
	alloc   AllocFunc
	realloc ReallocFunc
	free    FreeFunc
	udata   any
	header  []byte
}

func newHeap(cfg HeapConfig) (*heap, apperrors.Error) {
	h := &heap{udata: cfg.UserData}
	switch {
	case cfg.Alloc == nil && cfg.Realloc == nil && cfg.Free == nil:
		h.alloc, h.realloc, h.free = defaultAlloc, defaultRealloc, defaultFree
	case cfg.Alloc == nil || cfg.Realloc == nil || cfg.Free == nil:
		return nil, ErrInvalidHeapConfig.Msg("alloc, realloc and free must be provided together")
	default:
		h.alloc, h.realloc, h.free = cfg.Alloc, cfg.Realloc, cfg.Free
	}

	h.header = h.alloc(h.udata, heapHeaderSize)
	if h.header == nil {
		return nil, ErrHeapCreation.Msg("heap allocation failed")
	}
	return h, nil
}

func (h *heap) destroy() {
	if h.header != nil {
		h.free(h.udata, h.header)
		h.header = nil
	}
}

func defaultAlloc(_ any, size int) []byte {
	return make([]byte, size)
}

func defaultRealloc(_ any, buf []byte, size int) []byte {
	if size <= cap(buf) {
		return buf[:size]
	}
	nb := make([]byte, size)
	copy(nb, buf)
	return nb
}

func defaultFree(_ any, _ []byte) {}

func defaultFatal(_ any, msg string) {
	log.Error().Str("reason", msg).Msg("unrecoverable js runtime error")
}

// heapBuffer is a growable byte buffer whose memory comes from a context heap.
type heapBuffer struct {
	h   *heap
	mem []byte
	n   int
}

const minHeapBuffer = 64

func (b *heapBuffer) grow(need int) bool {
	if b.n+need <= len(b.mem) {
		return true
	}
	size := max(2*len(b.mem), b.n+need, minHeapBuffer)
	var mem []byte
	if b.mem == nil {
		mem = b.h.alloc(b.h.udata, size)
	} else {
		mem = b.h.realloc(b.h.udata, b.mem, size)
	}
	if mem == nil {
		return false
	}
	b.mem = mem
	return true
}

func (b *heapBuffer) WriteString(s string) bool {
	if !b.grow(len(s)) {
		return false
	}
	b.n += copy(b.mem[b.n:], s)
	return true
}

func (b *heapBuffer) Bytes() []byte {
	return b.mem[:b.n]
}

func (b *heapBuffer) release() {
	if b.mem != nil {
		b.h.free(b.h.udata, b.mem)
		b.mem, b.n = nil, 0
	}
}

// BudgetAllocator hands out heap memory until Limit bytes are in use. A zero Limit
// never refuses. It is meant for a single context at a time.
type BudgetAllocator struct {
	Limit int
	used  int
}

func (b *BudgetAllocator) Used() int {
	return b.used
}

func (b *BudgetAllocator) Alloc(_ any, size int) []byte {
	if b.Limit > 0 && b.used+size > b.Limit {
		return nil
	}
	b.used += size
	return make([]byte, size)
}

func (b *BudgetAllocator) Realloc(_ any, buf []byte, size int) []byte {
	delta := size - len(buf)
	if b.Limit > 0 && b.used+delta > b.Limit {
		return nil
	}
	b.used += delta
	nb := make([]byte, size)
	copy(nb, buf)
	return nb
}

func (b *BudgetAllocator) Free(_ any, buf []byte) {
	b.used -= len(buf)
}

// HeapConfig returns a heap configuration drawing from the budget.
func (b *BudgetAllocator) HeapConfig(udata any, fatal FatalFunc) HeapConfig {
	return HeapConfig{
		Alloc:    b.Alloc,
		Realloc:  b.Realloc,
		Free:     b.Free,
		UserData: udata,
		Fatal:    fatal,
	}
}
