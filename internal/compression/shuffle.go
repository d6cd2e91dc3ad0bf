package compression

// shuffle groups byte j of every element together:
// [elem0][elem1]...[elemM] -> [all byte 0s][all byte 1s]...[all byte N-1s].
// Trailing bytes that do not fill an element are copied unchanged.
func shuffle(dst, src []byte, typesize int) {
	numElems := len(src) / typesize
	if typesize <= 1 || numElems == 0 {
		copy(dst, src)
		return
	}
	for i := 0; i < numElems; i++ {
		for j := 0; j < typesize; j++ {
			dst[j*numElems+i] = src[i*typesize+j]
		}
	}
	tail := numElems * typesize
	copy(dst[tail:], src[tail:])
}

// unshuffle reverses shuffle.
func unshuffle(dst, src []byte, typesize int) {
	numElems := len(src) / typesize
	if typesize <= 1 || numElems == 0 {
		copy(dst, src)
		return
	}
	for i := 0; i < numElems; i++ {
		for j := 0; j < typesize; j++ {
			dst[i*typesize+j] = src[j*numElems+i]
		}
	}
	tail := numElems * typesize
	copy(dst[tail:], src[tail:])
}

// bitshuffle transposes the bit matrix of the leading elements, rounded down
// to a multiple of eight: output bit plane p (byte p/8 of each element, bit
// p%8) holds that bit of every element in order. Remaining bytes are copied.
func bitshuffle(dst, src []byte, typesize int) {
	n := (len(src) / typesize) &^ 7
	size := n * typesize
	for i := range dst[:size] {
		dst[i] = 0
	}
	for i := 0; i < n; i++ {
		for j := 0; j < typesize; j++ {
			b := src[i*typesize+j]
			for k := 0; k < 8; k++ {
				if b&(1<<k) == 0 {
					continue
				}
				pos := (j*8+k)*n + i
				dst[pos>>3] |= 1 << (pos & 7)
			}
		}
	}
	copy(dst[size:], src[size:])
}

// unbitshuffle reverses bitshuffle.
func unbitshuffle(dst, src []byte, typesize int) {
	n := (len(src) / typesize) &^ 7
	size := n * typesize
	for i := range dst[:size] {
		dst[i] = 0
	}
	for j := 0; j < typesize; j++ {
		for k := 0; k < 8; k++ {
			plane := (j*8 + k) * n
			for i := 0; i < n; i++ {
				pos := plane + i
				if src[pos>>3]&(1<<(pos&7)) != 0 {
					dst[i*typesize+j] |= 1 << k
				}
			}
		}
	}
	copy(dst[size:], src[size:])
}
