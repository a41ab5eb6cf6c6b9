// Package price unpacks the 4-byte fixed point prices used by the lending contract.
package price

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// PackedSize is the byte length of a packed price (bytes4).
	PackedSize = 4
	// MaxPart caps both the whole and the decimal half.
	MaxPart = 9999
)

// Unpack decodes a packed price given as base64 (crawler output) or 0x-prefixed hex.
func Unpack(packed string) (float64, error) {
	packed = strings.TrimSpace(packed)

	var (
		raw []byte
		err error
	)
	if strings.HasPrefix(packed, "0x") || strings.HasPrefix(packed, "0X") {
		raw, err = hexutil.Decode("0x" + packed[2:])
	} else {
		raw, err = base64.StdEncoding.DecodeString(packed)
	}
	if err != nil {
		return 0, fmt.Errorf("decode packed price %q: %w", packed, err)
	}
	return UnpackBytes(raw)
}

// UnpackBytes splits b into a big-endian whole part and decimal part, clamps
// each to MaxPart and returns whole + decimal*1e-4 without rounding. The
// decimal is scaled before the add, so 0x00000003 yields 0.00030000000000000003.
func UnpackBytes(b []byte) (float64, error) {
	if len(b) != PackedSize {
		return 0, fmt.Errorf("packed price must be %d bytes, got %d", PackedSize, len(b))
	}
	whole := clamp(binary.BigEndian.Uint16(b[0:2]))
	decimal := clamp(binary.BigEndian.Uint16(b[2:4]))

	// the conversion keeps the product rounded on its own, never fused into the add
	scaled := float64(float64(decimal) * 1e-4)
	return float64(whole) + scaled, nil
}

func clamp(v uint16) uint16 {
	if v > MaxPart {
		return MaxPart
	}
	return v
}
