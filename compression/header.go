package compression

import "errors"

// Compression container header shared by the BIOS decompression formats:
// one method id byte followed by the 24-bit little-endian decompressed
// length.

// Method ids understood by the BIOS decompression routines.
const (
	MethodLZSS     = 0x10 // LZ77/LZSS
	MethodHuffman4 = 0x24 // Huffman, 4-bit symbols
	MethodHuffman8 = 0x28 // Huffman, 8-bit symbols
	MethodRLE      = 0x30 // run-length encoding
)

var (
	ErrInvalidHeader = errors.New("compression: invalid compression header")
	ErrSizeRange     = errors.New("compression: decompressed size exceeds 24 bits")
)

// AppendCompressionHeader appends the 4-byte compression header for the
// given method id and decompressed size to dst.
func AppendCompressionHeader(dst []byte, method byte, size int) ([]byte, error) {
	if size < 0 || size >= 1<<24 {
		return nil, ErrSizeRange
	}
	return append(dst, method, byte(size), byte(size>>8), byte(size>>16)), nil
}

// ParseCompressionHeader splits a compressed buffer into its method id,
// decompressed size and payload.
func ParseCompressionHeader(data []byte) (method byte, size int, payload []byte, err error) {
	if len(data) < 4 {
		return 0, 0, nil, ErrInvalidHeader
	}
	method = data[0]
	size = int(data[1]) | int(data[2])<<8 | int(data[3])<<16
	return method, size, data[4:], nil
}
