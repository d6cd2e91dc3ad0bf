package compression

// NoneCodec copies stored bytes verbatim. It decodes memcpyed frames, which
// are written for level 0, for inputs too small to compress and whenever
// compression would grow the data.
type NoneCodec struct{}

func (c *NoneCodec) Decompress(src, dst []byte) error {
	if len(src) != len(dst) {
		return errShortBlock(len(src), len(dst))
	}
	copy(dst, src)
	return nil
}
