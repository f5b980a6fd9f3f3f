package binary

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/wippyai/wasm-binfmt/errors"
)

// The cursor is a set of pure functions over (src, pos, end): src is the
// whole input buffer, pos the current offset and end the exclusive bound the
// read must stay within. Nothing is copied and no state is kept between
// calls, so the same region can be re-scanned at any time. Every function
// returns the offset just past what it consumed.

// Byte reads one byte at pos.
func Byte(src []byte, pos, end int) (byte, int, error) {
	if pos >= end {
		return 0, pos, errors.UnexpectedEnd(pos)
	}
	return src[pos], pos + 1, nil
}

// Bytes returns the n bytes at pos as a sub-slice of src.
func Bytes(src []byte, pos, end int, n int) ([]byte, int, error) {
	if n < 0 || n > end-pos {
		return nil, pos, errors.UnexpectedEnd(end)
	}
	return src[pos : pos+n : pos+n], pos + n, nil
}

// U32 reads an unsigned LEB128 encoded uint32.
func U32(src []byte, pos, end int) (uint32, int, error) {
	v, next, err := unsigned(src, pos, end, 32)
	return uint32(v), next, err
}

// U64 reads an unsigned LEB128 encoded uint64.
func U64(src []byte, pos, end int) (uint64, int, error) {
	return unsigned(src, pos, end, 64)
}

// S32 reads a signed LEB128 encoded int32.
func S32(src []byte, pos, end int) (int32, int, error) {
	v, next, err := signed(src, pos, end, 32)
	return int32(v), next, err
}

// S33 reads a signed LEB128 encoded 33-bit value, as used by heap and block types.
func S33(src []byte, pos, end int) (int64, int, error) {
	return signed(src, pos, end, 33)
}

// S64 reads a signed LEB128 encoded int64.
func S64(src []byte, pos, end int) (int64, int, error) {
	return signed(src, pos, end, 64)
}

// U32LE reads a little-endian uint32 (fixed 4 bytes).
func U32LE(src []byte, pos, end int) (uint32, int, error) {
	buf, next, err := Bytes(src, pos, end, 4)
	if err != nil {
		return 0, pos, err
	}
	return binary.LittleEndian.Uint32(buf), next, nil
}

// Name reads a UTF-8 encoded name (length-prefixed byte sequence).
func Name(src []byte, pos, end int) (string, int, error) {
	length, next, err := U32(src, pos, end)
	if err != nil {
		return "", pos, err
	}
	if uint64(length) > uint64(end-next) {
		return "", pos, errors.UnexpectedEnd(end)
	}
	data := src[next : next+int(length)]
	if !utf8.Valid(data) {
		return "", pos, errors.New(errors.PhaseSection, errors.CodeInvalidName).
			At(next).
			Detail("invalid UTF-8 in name").
			Build()
	}
	return string(data), next + int(length), nil
}

// Skip advances past a LEB128 value of any width without decoding it.
func Skip(src []byte, pos, end int, bits int) (int, error) {
	maxLen := (bits + 6) / 7
	for i := 0; i < maxLen; i++ {
		if pos+i >= end {
			return pos, errors.UnexpectedEnd(end)
		}
		if src[pos+i]&0x80 == 0 {
			return pos + i + 1, nil
		}
	}
	// no terminating byte within the width
	return pos, errors.UnexpectedEnd(pos + maxLen - 1)
}

func unsigned(src []byte, pos, end int, bits uint) (uint64, int, error) {
	var result uint64
	var shift uint
	maxLen := int((bits + 6) / 7)
	for i := 0; ; i++ {
		cur := pos + i
		if cur >= end {
			return 0, pos, errors.UnexpectedEnd(cur)
		}
		b := src[cur]
		if i == maxLen-1 {
			if b&0x80 != 0 {
				return 0, pos, errors.UnexpectedEnd(cur)
			}
			// no bits above the width
			used := bits - shift
			if used < 7 && b>>used != 0 {
				return 0, pos, errors.IntegerTooLarge(cur, int(bits))
			}
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, cur + 1, nil
		}
		shift += 7
	}
}

func signed(src []byte, pos, end int, bits uint) (int64, int, error) {
	var result int64
	var shift uint
	maxLen := int((bits + 6) / 7)
	for i := 0; ; i++ {
		cur := pos + i
		if cur >= end {
			return 0, pos, errors.UnexpectedEnd(cur)
		}
		b := src[cur]
		if i == maxLen-1 {
			if b&0x80 != 0 {
				return 0, pos, errors.UnexpectedEnd(cur)
			}
			// unused bits must all equal the sign bit
			used := bits - shift
			if used < 7 {
				rest := int8(b<<1) >> used
				if rest != 0 && rest != -1 {
					return 0, pos, errors.IntegerTooLarge(cur, int(bits))
				}
			}
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= ^int64(0) << shift
			}
			return result, cur + 1, nil
		}
	}
}
