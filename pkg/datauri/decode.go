package datauri

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by [Decode].
var (
	// ErrInvalidCharacter is returned when the input contains a byte that is
	// neither part of the base64 alphabet, whitespace, nor padding.
	ErrInvalidCharacter = errors.New("invalid base64 character")

	// ErrOverflow is returned when the decoded data would not fit into the
	// capacity given to [Decode].
	ErrOverflow = errors.New("base64 output exceeds capacity")
)

// CorruptInputError reports the offset of the first invalid input byte.
type CorruptInputError struct {
	Offset int
	Byte   byte
}

func (e *CorruptInputError) Error() string {
	return fmt.Sprintf("%v 0x%02x at offset %d", ErrInvalidCharacter, e.Byte, e.Offset)
}

// Unwrap returns ErrInvalidCharacter.
func (e *CorruptInputError) Unwrap() error { return ErrInvalidCharacter }

const (
	symSpace   = 64
	symPad     = 65
	symInvalid = 66
)

// decodeTable maps every input byte to its 6-bit value or to one of the
// sym* classes above.
var decodeTable = [256]byte{
	66, 66, 66, 66, 66, 66, 66, 66, 66, 64, 64, 64, 64, 64, 66, 66, // 0x00
	66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, // 0x10
	64, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 62, 66, 66, 66, 63, // 0x20
	52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 66, 66, 66, 65, 66, 66, // 0x30
	66, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, // 0x40
	15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 66, 66, 66, 66, 66, // 0x50
	66, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40, // 0x60
	41, 42, 43, 44, 45, 46, 47, 48, 49, 50, 51, 66, 66, 66, 66, 66, // 0x70
	66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, // 0x80
	66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66,
	66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66,
	66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66,
	66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66,
	66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66,
	66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66,
	66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66, 66,
}

// Decode decodes standard base64 from src into a buffer of at most capacity
// bytes.
//
// Whitespace is skipped. The first '=' ends the data and everything after it
// is ignored. Trailing groups of two or three symbols produce one or two
// bytes; a single trailing symbol produces nothing.
//
// On error the bytes decoded so far are returned along with it. They always
// end on a whole group, so a caller may choose to carry on with them.
func Decode(src []byte, capacity int) ([]byte, error) {
	if capacity < 0 {
		capacity = 0
	}
	out := make([]byte, 0, min(capacity, MaxDecodedLen(len(src))))

	var buf uint32
	n := 0
loop:
	for i, c := range src {
		v := decodeTable[c]
		switch v {
		case symSpace:
			continue
		case symInvalid:
			return out, &CorruptInputError{Offset: i, Byte: c}
		case symPad:
			break loop
		}

		buf = buf<<6 | uint32(v)
		n++
		if n == 4 {
			if len(out)+3 > capacity {
				return out, ErrOverflow
			}
			out = append(out, byte(buf>>16), byte(buf>>8), byte(buf))
			buf, n = 0, 0
		}
	}

	switch n {
	case 3:
		if len(out)+2 > capacity {
			return out, ErrOverflow
		}
		out = append(out, byte(buf>>10), byte(buf>>2))
	case 2:
		if len(out)+1 > capacity {
			return out, ErrOverflow
		}
		out = append(out, byte(buf>>4))
	}
	return out, nil
}

// MaxDecodedLen returns the largest number of bytes n encoded bytes can
// decode to.
func MaxDecodedLen(n int) int {
	return n/4*3 + n%4*6/8
}
