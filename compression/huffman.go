// Package compression implements the compression formats consumed by the
// GBA and 3DS BIOS decompression routines.
package compression

import (
	"errors"
	"sort"
	"sync"
)

// Huffman coding for BIOS method 0x28 (8-bit symbols).
//
// The serialized tree is a flat byte array: slot 0 holds half the node
// count, and each internal node packs a 6-bit child offset with two flags
// marking leaf children. A node at index i finds its children at
// (i &^ 1) + 2*offset + 2, so the decoder walks the array directly and
// never rebuilds a tree. Keeping every offset within 6 bits is what the
// serializer's fixup pass is for.

var (
	ErrHuffmanCorrupted = errors.New("compression: corrupted Huffman data")
	ErrCodeOverflow     = errors.New("compression: Huffman code exceeds 31 bits")
	ErrTreeLayout       = errors.New("compression: Huffman tree layout overflow")
)

const (
	offsetMask = 0x3F // child offset bits of an internal node entry
	leftLeaf   = 0x80 // left child is a data node
	rightLeaf  = 0x40 // right child is a data node
)

// huffNode is one tree node in the arena. Children are arena indices;
// leaves have none. A leaf carries its symbol in sym and an internal node
// its layout offset in offset: two fields, so serialization can never
// clobber a symbol value.
type huffNode struct {
	left, right int32  // arena indices, -1 for a leaf
	count       uint32 // subtree weight
	code        uint32 // root-to-leaf path, MSB first (leaf only)
	leaves      uint16 // leaf count of the subtree
	pos         uint16 // final slot in the layout, set by checkLayout
	sym         byte   // symbol value (leaf only)
	offset      byte   // serialized child offset (internal only)
	codeLen     uint8  // code length in bits (leaf only)
	minSym      byte   // smallest symbol in the subtree, for tie-breaks
}

// huffArena holds the nodes for one encode call.
type huffArena struct {
	nodes  []huffNode
	lookup [256]int32 // symbol -> leaf index
}

var huffArenaPool = sync.Pool{
	New: func() any {
		// 256 symbol leaves plus one synthetic leaf: at most 513 nodes
		return &huffArena{nodes: make([]huffNode, 0, 513)}
	},
}

func (a *huffArena) reset() {
	a.nodes = a.nodes[:0]
}

func (a *huffArena) isLeaf(n int32) bool {
	return a.nodes[n].left < 0
}

func (a *huffArena) newLeaf(sym byte, count uint32) int32 {
	idx := int32(len(a.nodes))
	a.nodes = append(a.nodes, huffNode{
		left:   -1,
		right:  -1,
		count:  count,
		leaves: 1,
		sym:    sym,
		minSym: sym,
	})
	return idx
}

func (a *huffArena) newInternal(left, right int32) int32 {
	idx := int32(len(a.nodes))
	l, r := &a.nodes[left], &a.nodes[right]
	minSym := l.minSym
	if r.minSym < minSym {
		minSym = r.minSym
	}
	a.nodes = append(a.nodes, huffNode{
		left:   left,
		right:  right,
		count:  l.count + r.count,
		leaves: l.leaves + r.leaves,
		minSym: minSym,
	})
	return idx
}

// histogram counts byte occurrences in src.
func histogram(src []byte) [256]uint32 {
	var hist [256]uint32
	for _, b := range src {
		hist[b]++
	}
	return hist
}

// buildTree merges a leaf per present symbol into a single tree with the
// classic two-smallest merge. Equal weights order by the smallest symbol
// contained in each subtree, so the output is deterministic. The root
// always has two children: a lone symbol is paired with a synthetic
// zero-weight 0x00 leaf, as is an empty histogram.
func (a *huffArena) buildTree(hist *[256]uint32) int32 {
	work := make([]int32, 0, 256)
	for v := 0; v < 256; v++ {
		if hist[v] > 0 {
			work = append(work, a.newLeaf(byte(v), hist[v]))
		}
	}
	if len(work) == 0 {
		work = append(work, a.newLeaf(0x00, 0))
	}

	for len(work) > 1 {
		sort.Slice(work, func(i, j int) bool {
			ni, nj := &a.nodes[work[i]], &a.nodes[work[j]]
			if ni.count != nj.count {
				return ni.count < nj.count
			}
			return ni.minSym < nj.minSym
		})

		// merge the two smallest, reinsert the parent in the first's place
		parent := a.newInternal(work[0], work[1])
		work[0] = parent
		work[1] = work[len(work)-1]
		work = work[:len(work)-1]
	}

	root := work[0]
	if a.isLeaf(root) {
		root = a.newInternal(root, a.newLeaf(0x00, 0))
	}
	return root
}

// buildCodes assigns every leaf its root-to-leaf path, 0 for a left
// descent and 1 for a right descent, and records the leaf in the symbol
// lookup. Codes are capped at 31 bits.
func (a *huffArena) buildCodes(root int32) error {
	type frame struct {
		node    int32
		code    uint32
		codeLen uint8
	}
	stack := make([]frame, 0, 64)
	stack = append(stack, frame{node: root})
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := &a.nodes[f.node]
		if nd.left < 0 {
			nd.code = f.code
			nd.codeLen = f.codeLen
			a.lookup[nd.sym] = f.node
			continue
		}
		if f.codeLen >= 31 {
			return ErrCodeOverflow
		}
		stack = append(stack,
			frame{node: nd.right, code: f.code<<1 | 1, codeLen: f.codeLen + 1},
			frame{node: nd.left, code: f.code << 1, codeLen: f.codeLen + 1},
		)
	}
	return nil
}

// serializeSubtree lays out the descendants of node breadth-first starting
// at slot next, recording each internal node's child offset as half the
// number of queued nodes still ahead of it. A subtree with more than 64
// leaves cannot keep its children addressable through a 6-bit offset under
// breadth-first order, so it is split instead: the child with fewer leaves
// is placed adjacent at offset 0 and the other child starts at the first
// slot past that block, at offset leaves(adjacent)-1.
func (a *huffArena) serializeSubtree(layout []int32, node int32, next int) {
	nd := &a.nodes[node]
	if nd.leaves > 0x40 {
		layout[next] = nd.left
		layout[next+1] = nd.right

		ca, cb := nd.left, nd.right
		if a.nodes[cb].leaves < a.nodes[ca].leaves {
			ca, cb = cb, ca
		}
		if !a.isLeaf(ca) {
			a.nodes[ca].offset = 0
			a.serializeSubtree(layout, ca, next+2)
		}
		if !a.isLeaf(cb) {
			a.nodes[cb].offset = byte(a.nodes[ca].leaves - 1)
			a.serializeSubtree(layout, cb, next+2*int(a.nodes[ca].leaves))
		}
		return
	}

	queue := make([]int32, 0, 2*int(nd.leaves))
	queue = append(queue, nd.left, nd.right)
	head := 0
	for head < len(queue) {
		n := queue[head]
		head++

		layout[next] = n
		next++

		cur := &a.nodes[n]
		if cur.left < 0 {
			continue
		}
		cur.offset = byte((len(queue) - head) / 2)
		queue = append(queue, cur.left, cur.right)
	}
}

// fixupLayout repairs internal nodes whose offset overflows 6 bits. The
// offending node's own child pair is pulled from the far end of its block
// and reinserted just close enough to be addressable, shifting the slots
// in between down by one pair; every offset that addressed into or across
// the moved range is then recomputed from its new position. When the
// offending node is the right half of a pair whose left sibling already
// sits at the maximum offset, the block is shifted by a single pair on
// the left sibling's behalf instead, and the node is re-examined on the
// next iteration.
func (a *huffArena) fixupLayout(layout []int32) {
	for i := 1; i < len(layout); i++ {
		nd := &a.nodes[layout[i]]
		if nd.left < 0 || nd.offset <= offsetMask {
			continue
		}

		shift := int(nd.offset) - offsetMask
		if i&1 == 1 {
			if prev := &a.nodes[layout[i-1]]; prev.left >= 0 && prev.offset == offsetMask {
				// shifting would push the left sibling out of range
				i--
				nd = prev
				shift = 1
			}
		}

		nodeEnd := i/2 + 1 + int(nd.offset) // child pair index
		nodeBegin := nodeEnd - shift

		shiftBegin := 2 * nodeBegin
		shiftEnd := 2 * nodeEnd

		// move the block's last child pair to its front
		n0, n1 := layout[shiftEnd], layout[shiftEnd+1]
		copy(layout[shiftBegin+2:shiftEnd+2], layout[shiftBegin:shiftEnd])
		layout[shiftBegin], layout[shiftBegin+1] = n0, n1

		// the node now reaches its children at the maximum offset
		nd.offset -= byte(shift)

		// nodes ahead of the moved range whose children sat inside it
		for idx := i + 1; idx < shiftBegin; idx++ {
			m := &a.nodes[layout[idx]]
			if m.left < 0 {
				continue
			}
			if c := idx/2 + 1 + int(m.offset); c >= nodeBegin && c < nodeEnd {
				m.offset++
			}
		}

		// the moved pair backed away from its own children
		if m := &a.nodes[layout[shiftBegin]]; m.left >= 0 {
			m.offset += byte(shift)
		}
		if m := &a.nodes[layout[shiftBegin+1]]; m.left >= 0 {
			m.offset += byte(shift)
		}

		// shifted nodes moved one pair closer to children past the range
		for idx := shiftBegin + 2; idx < shiftEnd+2; idx++ {
			m := &a.nodes[layout[idx]]
			if m.left < 0 {
				continue
			}
			if c := idx/2 + 1 + int(m.offset); c > nodeEnd {
				m.offset--
			}
		}
	}
}

// checkLayout verifies that every internal node's offset fits the 6-bit
// field and addresses its children exactly. The fixup pass must leave the
// layout in this state; anything else would serialize to a tree the
// decoder cannot walk.
func (a *huffArena) checkLayout(layout []int32) error {
	for i := 1; i < len(layout); i++ {
		a.nodes[layout[i]].pos = uint16(i)
	}
	for i := 1; i < len(layout); i++ {
		nd := &a.nodes[layout[i]]
		if nd.left < 0 {
			continue
		}
		if nd.offset > offsetMask {
			return ErrTreeLayout
		}
		if int(a.nodes[nd.left].pos) != (i&^1)+2*int(nd.offset)+2 {
			return ErrTreeLayout
		}
		if a.nodes[nd.right].pos != a.nodes[nd.left].pos+1 {
			return ErrTreeLayout
		}
	}
	return nil
}

// encodeTree serializes the tree rooted at root into the byte array
// described in the package comment. tree[0] must already hold the size
// field; slots 1..n receive one byte per node.
func (a *huffArena) encodeTree(tree []byte, root int32) error {
	layout := make([]int32, len(tree))
	layout[1] = root
	a.serializeSubtree(layout, root, 2)
	a.fixupLayout(layout)
	if err := a.checkLayout(layout); err != nil {
		return err
	}

	for i := 1; i < len(layout); i++ {
		nd := &a.nodes[layout[i]]
		if nd.left < 0 {
			tree[i] = nd.sym
			continue
		}
		b := nd.offset
		if a.nodes[nd.left].left < 0 {
			b |= leftLeaf
		}
		if a.nodes[nd.right].left < 0 {
			b |= rightLeaf
		}
		tree[i] = b
	}
	return nil
}

// HuffEncode compresses src with 8-bit Huffman coding (BIOS method 0x28).
// The output is the 4-byte compression header, the serialized tree and
// the bit-packed payload, zero-padded to a multiple of 4 bytes. Inputs
// too large for the header's 24-bit length field return ErrSizeRange.
func HuffEncode(src []byte) ([]byte, error) {
	a := huffArenaPool.Get().(*huffArena)
	defer huffArenaPool.Put(a)
	a.reset()

	hist := histogram(src)
	root := a.buildTree(&hist)
	if err := a.buildCodes(root); err != nil {
		return nil, err
	}

	count := 2*int(a.nodes[root].leaves) - 1
	tree := make([]byte, (count+2)&^1)
	tree[0] = byte(count / 2)
	if err := a.encodeTree(tree, root); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(src))
	out, err := AppendCompressionHeader(out, MethodHuffman8, len(src))
	if err != nil {
		return nil, err
	}
	out = append(out, tree...)

	w := bitWriter{buf: out, pos: 32}
	for _, b := range src {
		leaf := &a.nodes[a.lookup[b]]
		w.writeCode(leaf.code, int(leaf.codeLen))
	}
	w.flush()
	out = w.buf

	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out, nil
}

// HuffDecode decompresses size bytes of Huffman-coded data. src must
// point at the serialized tree, immediately after the compression header.
func HuffDecode(src []byte, size int) ([]byte, error) {
	dst := make([]byte, size)
	if err := HuffDecodeInto(src, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// HuffDecodeInto decompresses src into dst, producing exactly len(dst)
// bytes. The decompressed length is not self-delimited in the stream; the
// caller takes it from the compression header. A single state walks the
// serialized tree: each bit selects the left or right child at
// (node &^ 1) + 2*offset + 2, and a set leaf flag emits that child's byte
// and restarts at the root.
func HuffDecodeInto(src, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	if len(src) < 2 {
		return ErrHuffmanCorrupted
	}

	treeSize := (int(src[0]) + 1) * 2
	if treeSize > len(src) {
		return ErrHuffmanCorrupted
	}
	tree := src[:treeSize]

	pos := treeSize // bitstream starts right after the tree
	var word, mask uint32
	node := 1

	for out := 0; out < len(dst); {
		if mask == 0 {
			if pos >= len(src) {
				return ErrHuffmanCorrupted
			}
			word = readWord(src, pos)
			pos += 4
			mask = 1 << 31
		}

		entry := tree[node]
		child := (node &^ 1) + 2*int(entry&offsetMask) + 2
		flag := byte(leftLeaf)
		if word&mask != 0 {
			child++
			flag = rightLeaf
		}
		if child >= treeSize {
			return ErrHuffmanCorrupted
		}

		if entry&flag != 0 {
			dst[out] = tree[child]
			out++
			node = 1
		} else {
			node = child
		}

		mask >>= 1
	}
	return nil
}
