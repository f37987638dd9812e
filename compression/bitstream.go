package compression

import "encoding/binary"

// Bit packing for the BIOS Huffman payload. Codes accumulate into a 32-bit
// block starting at the most significant bit; every completed block is
// appended to the output as 4 little-endian bytes.

// bitWriter packs MSB-first bits into 32-bit little-endian words.
type bitWriter struct {
	buf   []byte
	block uint32
	pos   int // next bit position, counts down from 32
}

// writeCode pushes the low n bits of code, most significant code bit first.
func (w *bitWriter) writeCode(code uint32, n int) {
	for i := 1; i <= n; i++ {
		w.pos--
		if code&(1<<(n-i)) != 0 {
			w.block |= 1 << w.pos
		}
		if w.pos == 0 {
			w.flush()
		}
	}
}

// flush appends the current block as 4 little-endian bytes. Unwritten
// low-order bit positions stay zero. Flushing an empty block is a no-op.
func (w *bitWriter) flush() {
	if w.pos >= 32 {
		return
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, w.block)
	w.pos = 32
	w.block = 0
}

// readWord reads the 32-bit little-endian word at pos, zero-filling bytes
// past the end of data. A payload sliced tight against the last word reads
// the same as one carried inside the 4-byte-padded output buffer.
func readWord(data []byte, pos int) uint32 {
	if pos+4 <= len(data) {
		return binary.LittleEndian.Uint32(data[pos:])
	}
	var w uint32
	for i := 0; pos+i < len(data); i++ {
		w |= uint32(data[pos+i]) << (8 * i)
	}
	return w
}
