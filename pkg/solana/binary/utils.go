// Package binary holds little-endian packers for fixed account and
// instruction layouts. Every helper reads or writes at the start of the
// provided slice and advances offset by the width of the field.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"
	"math"
)

const keySize = ed25519.PublicKeySize

var le = binary.LittleEndian

func PutKey32(dst []byte, src []byte, offset *int) {
	copy(dst[:keySize], src)
	*offset += keySize
}

// PutOptionalKey32 writes a COption<Pubkey>. A nil or empty src writes the
// None tag and leaves the key bytes zeroed.
func PutOptionalKey32(dst []byte, src []byte, offset *int, optionSize int) {
	if putTag(dst, len(src) > 0) {
		copy(dst[optionSize:optionSize+keySize], src)
	}
	*offset += optionSize + keySize
}

func PutOptionalUint64(dst []byte, v *uint64, offset *int, optionSize int) {
	if putTag(dst, v != nil) {
		le.PutUint64(dst[optionSize:], *v)
	}
	*offset += optionSize + 8
}

func PutUint64(dst []byte, v uint64, offset *int) {
	le.PutUint64(dst, v)
	*offset += 8
}

func PutUint32(dst []byte, v uint32, offset *int) {
	le.PutUint32(dst, v)
	*offset += 4
}

func PutUint16(dst []byte, v uint16, offset *int) {
	le.PutUint16(dst, v)
	*offset += 2
}

func PutUint8(dst []byte, v uint8, offset *int) {
	dst[0] = v
	*offset++
}

func PutBool(dst []byte, v bool, offset *int) {
	putTag(dst, v)
	*offset++
}

func PutFloat64(dst []byte, v float64, offset *int) {
	PutUint64(dst, math.Float64bits(v), offset)
}

func GetKey32(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = readKey(src)
	*offset += keySize
}

// GetOptionalKey32 reads a COption<Pubkey>, leaving dst nil when the tag is
// None.
func GetOptionalKey32(src []byte, dst *ed25519.PublicKey, offset *int, optionSize int) {
	if src[0] == 1 {
		*dst = readKey(src[optionSize:])
	}
	*offset += optionSize + keySize
}

func GetOptionalUint64(src []byte, dst **uint64, offset *int, optionSize int) {
	if src[0] == 1 {
		v := le.Uint64(src[optionSize:])
		*dst = &v
	}
	*offset += optionSize + 8
}

func GetUint64(src []byte, dst *uint64, offset *int) {
	*dst = le.Uint64(src)
	*offset += 8
}

func GetUint32(src []byte, dst *uint32, offset *int) {
	*dst = le.Uint32(src)
	*offset += 4
}

func GetUint16(src []byte, dst *uint16, offset *int) {
	*dst = le.Uint16(src)
	*offset += 2
}

func GetUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[0]
	*offset++
}

func GetBool(src []byte, dst *bool, offset *int) {
	*dst = src[0] != 0
	*offset++
}

func GetFloat64(src []byte, dst *float64, offset *int) {
	var bits uint64
	GetUint64(src, &bits, offset)
	*dst = math.Float64frombits(bits)
}

// putTag writes a one byte presence flag and returns it.
func putTag(dst []byte, present bool) bool {
	dst[0] = 0
	if present {
		dst[0] = 1
	}
	return present
}

func readKey(src []byte) ed25519.PublicKey {
	key := make(ed25519.PublicKey, keySize)
	copy(key, src[:keySize])
	return key
}
