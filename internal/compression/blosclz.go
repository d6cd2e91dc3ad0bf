package compression

import (
	"errors"
)

// BloscLZCodec implements the BloscLZ byte format, a FastLZ level 1
// derivative. A stream is a sequence of tokens whose first byte is a control
// byte: values below 32 start a run of ctrl+1 literals, larger values encode
// a back reference of length (ctrl>>5)+2 with a 13-bit distance. The level
// is ignored by this encoder.
type BloscLZCodec struct{}

const (
	blosclzHashLog     = 13
	blosclzMaxLiterals = 32
	blosclzMaxDistance = 8191
	blosclzMinMatch    = 3
)

var errBloscLZCorrupt = errors.New("blosclz: corrupt input")

func (c *BloscLZCodec) FormatCode() uint8 { return FormatBloscLZ }

func (c *BloscLZCodec) Compress(src []byte, _ int) ([]byte, error) {
	if len(src) < 16 {
		return nil, nil
	}
	out := make([]byte, 0, len(src))
	var table [1 << blosclzHashLog]int32

	anchor, ip := 0, 0
	for ip+blosclzMinMatch < len(src) {
		seq := uint32(src[ip]) | uint32(src[ip+1])<<8 | uint32(src[ip+2])<<16
		h := (seq * 2654435761) >> (32 - blosclzHashLog)
		ref := int(table[h]) - 1
		table[h] = int32(ip + 1)

		dist := ip - ref
		if ref < 0 || dist > blosclzMaxDistance ||
			src[ref] != src[ip] || src[ref+1] != src[ip+1] || src[ref+2] != src[ip+2] {
			ip++
			continue
		}

		n := blosclzMinMatch
		for ip+n < len(src) && src[ref+n] == src[ip+n] {
			n++
		}
		out = appendBloscLZLiterals(out, src[anchor:ip])
		out = appendBloscLZMatch(out, n, dist-1)
		ip += n
		anchor = ip
		if len(out) >= len(src) {
			return nil, nil
		}
	}
	out = appendBloscLZLiterals(out, src[anchor:])
	if len(out) >= len(src) {
		return nil, nil
	}
	return out, nil
}

func appendBloscLZLiterals(out, lit []byte) []byte {
	for len(lit) > 0 {
		n := len(lit)
		if n > blosclzMaxLiterals {
			n = blosclzMaxLiterals
		}
		out = append(out, byte(n-1))
		out = append(out, lit[:n]...)
		lit = lit[n:]
	}
	return out
}

// appendBloscLZMatch encodes a match of length n at distance d+1. d must be
// below blosclzMaxDistance so the 16-bit far-distance escape never triggers.
func appendBloscLZMatch(out []byte, n, d int) []byte {
	hi := byte(d >> 8)
	if l := n - 2; l < 7 {
		out = append(out, byte(l)<<5|hi)
	} else {
		out = append(out, 7<<5|hi)
		rem := n - 9
		for rem >= 255 {
			out = append(out, 255)
			rem -= 255
		}
		out = append(out, byte(rem))
	}
	return append(out, byte(d))
}

func (c *BloscLZCodec) Decompress(src, dst []byte) error {
	if len(src) == 0 {
		return errBloscLZCorrupt
	}
	ip, op := 0, 0
	ctrl := int(src[ip] & 31)
	ip++
	for {
		if ctrl >= 32 {
			n := (ctrl >> 5) - 1
			ofs := (ctrl & 31) << 8
			if n == 6 {
				for {
					if ip >= len(src) {
						return errBloscLZCorrupt
					}
					code := src[ip]
					ip++
					n += int(code)
					if code != 255 {
						break
					}
				}
			}
			if ip >= len(src) {
				return errBloscLZCorrupt
			}
			code := int(src[ip])
			ip++
			dist := ofs + code + 1
			if code == 255 && ofs == 31<<8 {
				if ip+2 > len(src) {
					return errBloscLZCorrupt
				}
				dist = int(src[ip])<<8 | int(src[ip+1])
				dist += blosclzMaxDistance + 1
				ip += 2
			}
			n += blosclzMinMatch
			if dist > op || op+n > len(dst) {
				return errBloscLZCorrupt
			}
			for i := 0; i < n; i++ {
				dst[op] = dst[op-dist]
				op++
			}
		} else {
			n := ctrl + 1
			if ip+n > len(src) || op+n > len(dst) {
				return errBloscLZCorrupt
			}
			copy(dst[op:], src[ip:ip+n])
			ip += n
			op += n
		}
		if ip >= len(src) {
			break
		}
		ctrl = int(src[ip])
		ip++
	}
	if op != len(dst) {
		return errShortBlock(op, len(dst))
	}
	return nil
}
