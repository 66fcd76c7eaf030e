// Package itoa writes unsigned integers as decimal digits directly into a
// byte slice, two digits at a time via a precomputed lookup table, rather
// than through strconv.AppendUint's divide-and-mod loop. It backs the CLI's
// JSON-literal rendering (cmd/tagpackctl), where numbers are written at a
// rate that matters.
package itoa

// digitTable holds the two-ASCII-digit string for every value 0-99,
// indexed as digitTable[v*2:v*2+2].
const digitTable = "00010203040506070809" +
	"10111213141516171819" +
	"20212223242526272829" +
	"30313233343536373839" +
	"40414243444546474849" +
	"50515253545556575859" +
	"60616263646566676869" +
	"70717273747576777879" +
	"80818283848586878889" +
	"90919293949596979899"

// write2 copies the two-digit decimal rendering of v (0-99) into buf.
func write2(buf []byte, v uint32) {
	buf[0] = digitTable[v*2]
	buf[1] = digitTable[v*2+1]
}

// AppendUint64 appends the decimal digits of v to dst, with no leading
// zeros (except the value 0 itself), and returns the extended slice.
func AppendUint64(dst []byte, v uint64) []byte {
	var buf [20]byte
	n := writeUint64(buf[:], v)
	return append(dst, buf[20-n:]...)
}

// AppendInt64 appends the decimal rendering of v, prefixed with '-' when
// negative, and returns the extended slice.
func AppendInt64(dst []byte, v int64) []byte {
	if v < 0 {
		dst = append(dst, '-')
		// v's magnitude can exceed int64's positive range (min int64),
		// so negate via uint64 rather than -v.
		return AppendUint64(dst, uint64(-(v + 1))+1)
	}
	return AppendUint64(dst, uint64(v))
}

// writeUint64 writes x's decimal digits right-aligned into the tail of buf
// (len 20, the longest a uint64 can render) and returns the digit count.
func writeUint64(buf []byte, x uint64) int {
	if x < 100000000 {
		return writeUint32_1to8(buf[12:20], uint32(x))
	}
	if x < 10000000000000000 {
		hi := x / 100000000
		lo := uint32(x - hi*100000000)
		n := writeUint32_1to8(buf[4:12], uint32(hi))
		write8(buf[12:20], lo)
		return n + 8
	}
	tmp := x / 100000000
	lo := uint32(x - tmp*100000000)
	hi := uint32(tmp / 10000)
	mid := uint32(tmp - uint64(hi)*10000)
	n := writeUint32_5to8(buf[0:8], hi)
	write4(buf[8:12], mid)
	write8(buf[12:20], lo)
	return n + 12
}

// write8 writes exactly 8 digits (with leading zeros) of x into buf[0:8].
func write8(buf []byte, x uint32) {
	aabb := uint32((uint64(x) * 109951163) >> 40) // x / 10000
	ccdd := x - aabb*10000                        // x % 10000
	write4(buf[0:4], aabb)
	write4(buf[4:8], ccdd)
}

// write4 writes exactly 4 digits (with leading zeros) of x into buf[0:4].
func write4(buf []byte, x uint32) {
	aa := (x * 5243) >> 19 // x / 100
	bb := x - aa*100       // x % 100
	write2(buf[0:2], aa)
	write2(buf[2:4], bb)
}

// writeUint32_1to8 writes x (0 <= x < 10^8) right-aligned into the tail of
// buf (len 8) with no leading zeros, and returns the digit count.
func writeUint32_1to8(buf []byte, x uint32) int {
	switch {
	case x < 100:
		if x < 10 {
			buf[7] = digitTable[x*2+1]
			return 1
		}
		write2(buf[6:8], x)
		return 2
	case x < 10000:
		aa := (x * 5243) >> 19
		bb := x - aa*100
		n := writeLeading2(buf[4:6], aa)
		write2(buf[6:8], bb)
		return n + 2
	case x < 1000000:
		aa := uint32((uint64(x) * 429497) >> 32)
		bbcc := x - aa*10000
		bb := (bbcc * 5243) >> 19
		cc := bbcc - bb*100
		n := writeLeading2(buf[2:4], aa)
		write2(buf[4:6], bb)
		write2(buf[6:8], cc)
		return n + 4
	default:
		aabb := uint32((uint64(x) * 109951163) >> 40)
		ccdd := x - aabb*10000
		aa := (aabb * 5243) >> 19
		bb := aabb - aa*100
		cc := (ccdd * 5243) >> 19
		dd := ccdd - cc*100
		n := writeLeading2(buf[0:2], aa)
		write2(buf[2:4], bb)
		write2(buf[4:6], cc)
		write2(buf[6:8], dd)
		return n + 6
	}
}

// writeUint32_5to8 writes x (10^4 <= x < 10^8) into buf (len 8), suppressing
// a leading zero on the top two-digit group, and returns the digit count.
func writeUint32_5to8(buf []byte, x uint32) int {
	if x < 1000000 {
		aa := uint32((uint64(x) * 429497) >> 32)
		bbcc := x - aa*10000
		bb := (bbcc * 5243) >> 19
		cc := bbcc - bb*100
		n := writeLeading2(buf[2:4], aa)
		write2(buf[4:6], bb)
		write2(buf[6:8], cc)
		return n + 4
	}
	aabb := uint32((uint64(x) * 109951163) >> 40)
	ccdd := x - aabb*10000
	aa := (aabb * 5243) >> 19
	bb := aabb - aa*100
	cc := (ccdd * 5243) >> 19
	dd := ccdd - cc*100
	n := writeLeading2(buf[0:2], aa)
	write2(buf[2:4], bb)
	write2(buf[4:6], cc)
	write2(buf[6:8], dd)
	return n + 6
}

// writeLeading2 writes a two-digit group that may have a suppressed
// leading zero (v < 10): the digit lands in buf[1], buf[0] is left unused,
// and the caller must account for the 1-byte shrink via the returned count.
func writeLeading2(buf []byte, v uint32) int {
	if v < 10 {
		buf[1] = digitTable[v*2+1]
		return 1
	}
	write2(buf, v)
	return 2
}
