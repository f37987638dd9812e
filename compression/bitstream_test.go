package compression

import (
	"bytes"
	"testing"
)

func TestBitWriterFullWord(t *testing.T) {
	w := bitWriter{pos: 32}
	w.writeCode(0xDEADBEEF, 32)
	want := []byte{0xEF, 0xBE, 0xAD, 0xDE}
	if !bytes.Equal(w.buf, want) {
		t.Errorf("buf = %x, want %x", w.buf, want)
	}
	if w.pos != 32 || w.block != 0 {
		t.Errorf("writer not reset after full word: pos=%d block=%x", w.pos, w.block)
	}
}

func TestBitWriterPartialFlush(t *testing.T) {
	w := bitWriter{pos: 32}
	w.writeCode(0xF, 4) // 1111 at the block's most significant bits
	w.flush()
	want := []byte{0x00, 0x00, 0x00, 0xF0}
	if !bytes.Equal(w.buf, want) {
		t.Errorf("buf = %x, want %x", w.buf, want)
	}
}

func TestBitWriterFlushEmpty(t *testing.T) {
	w := bitWriter{pos: 32}
	w.flush()
	w.flush()
	if len(w.buf) != 0 {
		t.Errorf("flushing an empty writer produced %d bytes", len(w.buf))
	}
}

func TestBitWriterSpansWords(t *testing.T) {
	// 40 bits: 32 ones then 8 zeros
	w := bitWriter{pos: 32}
	w.writeCode(0xFFFFF, 20)
	w.writeCode(0xFFF, 12)
	w.writeCode(0x0, 8)
	w.flush()
	want := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(w.buf, want) {
		t.Errorf("buf = %x, want %x", w.buf, want)
	}
}

func TestReadWordTail(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	if got := readWord(data, 0); got != 0x04030201 {
		t.Errorf("readWord(0) = %08x, want 04030201", got)
	}
	// short tail reads zero-filled
	if got := readWord(data, 4); got != 0x00000005 {
		t.Errorf("readWord(4) = %08x, want 00000005", got)
	}
	if got := readWord(data, 2); got != 0x00050403 {
		t.Errorf("readWord(2) = %08x, want 00050403", got)
	}
}
