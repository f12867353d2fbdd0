// Package rt contains the wait-free plumbing between the control thread and
// the audio thread: a triple buffer for state snapshots and a bounded SPSC
// ring for commands. Neither side ever blocks or allocates after
// construction, so the audio callback stays glitch-free no matter what the
// control thread is doing.
package rt

import "sync/atomic"

// tripleBuffer is the shared core of an Input/Output pair. Three slots rotate
// between the writer, the reader and the middle position; backInfo packs the
// middle slot index in its low two bits plus a bit telling whether the middle
// slot holds a value the reader has not seen yet.
type tripleBuffer[T any] struct {
	slots    [3]T
	backInfo atomic.Uint32

	writeIdx uint32 // owned by the writer
	readIdx  uint32 // owned by the reader
}

const freshBit = 1 << 2

// Input is the writer half of a triple buffer.
type Input[T any] struct {
	b *tripleBuffer[T]
}

// Output is the reader half of a triple buffer.
type Output[T any] struct {
	b *tripleBuffer[T]
}

// NewTripleBuffer returns the two halves of a single-writer single-reader
// triple buffer, seeded with the zero value of T.
func NewTripleBuffer[T any]() (*Input[T], *Output[T]) {
	b := &tripleBuffer[T]{writeIdx: 0, readIdx: 2}
	b.backInfo.Store(1)
	return &Input[T]{b}, &Output[T]{b}
}

// Publish makes v the value the reader sees next. It overwrites any value the
// reader has not picked up yet and never waits for the reader.
func (i *Input[T]) Publish(v T) {
	b := i.b
	b.slots[b.writeIdx] = v
	old := b.backInfo.Swap(b.writeIdx | freshBit)
	b.writeIdx = old & 3
}

// Read returns the latest published value. The pointer stays valid until the
// next Read; the writer never touches the slot it points to. When nothing has
// been published since the last call it returns the same value again.
func (o *Output[T]) Read() *T {
	b := o.b
	if b.backInfo.Load()&freshBit != 0 {
		old := b.backInfo.Swap(b.readIdx)
		b.readIdx = old & 3
	}
	return &b.slots[b.readIdx]
}
