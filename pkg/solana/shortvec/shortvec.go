// Package shortvec implements the compact-u16 length prefix used in Solana
// transactions: little endian groups of 7 bits, with the high bit of each byte
// set when another byte follows.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedLen = 3

// EncodeLen writes the encoding of length to w. Lengths above math.MaxUint16
// are rejected.
func EncodeLen(w io.Writer, length int) (n int, err error) {
	if length < 0 || length > math.MaxUint16 {
		return 0, errors.Errorf("len must be within [0, %d]", math.MaxUint16)
	}

	var buf [maxEncodedLen]byte
	size := 0
	for {
		buf[size] = byte(length & 0x7f)
		length >>= 7
		if length == 0 {
			size++
			break
		}
		buf[size] |= 0x80
		size++
	}

	return w.Write(buf[:size])
}

// DecodeLen reads an encoded length from r.
func DecodeLen(r io.Reader) (int, error) {
	var b [1]byte
	var val int
	for i := 0; i < maxEncodedLen; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			// Input ending after a continuation byte is a truncated value
			if i > 0 && err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}

		val |= int(b[0]&0x7f) << (i * 7)
		if b[0]&0x80 == 0 {
			if val > math.MaxUint16 {
				return 0, errors.Errorf("len exceeds %d", math.MaxUint16)
			}
			return val, nil
		}
	}

	return 0, errors.Errorf("invalid size: more than %d bytes", maxEncodedLen)
}
