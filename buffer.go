package tagpack

import "math"

// minBufferSize is the floor applied to any caller-supplied buffer size
// hint.
const minBufferSize = 32

// defaultBufferSize is used when NewEncoder is called with no
// WithBufferSize option.
const defaultBufferSize = 4096

// outBuffer is the Encoder's growable output buffer. Supports only append
// operations; its Append* methods write MessagePack big-endian tokens.
type outBuffer struct {
	bytes  []byte
	steady int // configured steady-state capacity
	grew   bool
}

func newOutBuffer(size int) *outBuffer {
	if size < minBufferSize {
		size = minBufferSize
	}
	return &outBuffer{bytes: make([]byte, 0, size), steady: size}
}

// reset prepares the buffer for a new Encode call. If the buffer was grown
// past its steady-state capacity on a previous call, it is reallocated back
// down to that capacity; otherwise the existing array is reused.
func (b *outBuffer) reset() {
	if b.grew && cap(b.bytes) > b.steady {
		b.bytes = make([]byte, 0, b.steady)
		b.grew = false
	} else {
		b.bytes = b.bytes[:0]
	}
}

// grow ensures at least need additional bytes of capacity are available,
// applying a (used+need)*3/2 geometric growth policy. If that size
// overflows, it panics with an out-of-memory *EncodeError, which
// Encoder.Encode recovers and returns.
func (b *outBuffer) grow(need int) error {
	used := len(b.bytes)
	if used+need <= cap(b.bytes) {
		return nil
	}

	if used > math.MaxInt/3 || need > math.MaxInt-used {
		panic(newEncodeError("out of memory: requested buffer growth overflows"))
	}

	newCap := (used + need) * 3 / 2
	if newCap < used+need {
		newCap = used + need
	}

	next := make([]byte, used, newCap)
	copy(next, b.bytes)
	b.bytes = next
	b.grew = true
	return nil
}

func (b *outBuffer) appendByte(v byte) error {
	if err := b.grow(1); err != nil {
		return err
	}
	b.bytes = append(b.bytes, v)
	return nil
}

func (b *outBuffer) appendBytes(v []byte) error {
	if err := b.grow(len(v)); err != nil {
		return err
	}
	b.bytes = append(b.bytes, v...)
	return nil
}

func (b *outBuffer) appendString(v string) error {
	if err := b.grow(len(v)); err != nil {
		return err
	}
	b.bytes = append(b.bytes, v...)
	return nil
}

func (b *outBuffer) appendUint16(v uint16) error {
	if err := b.grow(2); err != nil {
		return err
	}
	b.bytes = append(b.bytes, byte(v>>8), byte(v))
	return nil
}

func (b *outBuffer) appendUint32(v uint32) error {
	if err := b.grow(4); err != nil {
		return err
	}
	b.bytes = append(b.bytes, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	return nil
}

func (b *outBuffer) appendUint64(v uint64) error {
	if err := b.grow(8); err != nil {
		return err
	}
	b.bytes = append(b.bytes,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	return nil
}
