package engine

import "sync"

// scanBuffers holds one row of raw values and the pointers handed to Scan.
type scanBuffers struct {
	vals []any
	ptrs []any
}

func (sb *scanBuffers) reset() {
	clear(sb.vals)
	sb.vals = sb.vals[:0]
	sb.ptrs = sb.ptrs[:0]
}

// prepare sizes the buffers for a row of width columns.
func (sb *scanBuffers) prepare(width int) {
	sb.reset()
	if cap(sb.vals) < width {
		sb.vals = make([]any, 0, width)
		sb.ptrs = make([]any, 0, width)
	}
	sb.vals = sb.vals[:width]
	sb.ptrs = sb.ptrs[:width]
	for i := range sb.vals {
		sb.ptrs[i] = &sb.vals[i]
	}
}

var scanPool = sync.Pool{
	New: func() any {
		return &scanBuffers{
			vals: make([]any, 0, 20),
			ptrs: make([]any, 0, 20),
		}
	},
}

func getBuffers(width int) *scanBuffers {
	sb := scanPool.Get().(*scanBuffers)
	sb.prepare(width)
	return sb
}

func putBuffers(sb *scanBuffers) {
	sb.reset()
	scanPool.Put(sb)
}
