// Package decode interprets the raw byte values returned by read-only
// inspect calls against the drop hub program. Fixed-width fields fail
// loudly when the buffer is short; variable-width sequences degrade to
// partial results because the query payload framing is not versioned.
package decode

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrMalformed is returned when a buffer is shorter than a declared
// fixed-width field demands.
var ErrMalformed = errors.New("malformed value")

// U64LE interprets buf as a little-endian unsigned 64-bit integer.
// The buffer must be exactly 8 bytes.
func U64LE(buf []byte) (uint64, error) {
	if len(buf) != 8 {
		return 0, fmt.Errorf("%w: u64 wants 8 bytes, got %d", ErrMalformed, len(buf))
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// UintLE interprets buf as a little-endian unsigned integer of up to 8
// bytes, zero-extending short buffers. Only usable where the source
// format guarantees short encodings (e.g. counters returned by the
// platform stats view).
func UintLE(buf []byte) (uint64, error) {
	if len(buf) > 8 {
		return 0, fmt.Errorf("%w: uint wants at most 8 bytes, got %d", ErrMalformed, len(buf))
	}
	var v uint64
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

// BoolFlag reports whether the first byte of buf equals 1. Any other
// leading byte, including an empty buffer, reads as false.
func BoolFlag(buf []byte) bool {
	return len(buf) > 0 && buf[0] == 1
}

// OptionalAddress decodes an option-of-address payload. The first byte is
// a tag: 0 means absent regardless of trailing bytes, 1 means the
// remaining bytes are the raw address. The address renders as lowercase
// hex with a 0x prefix. An empty buffer reads as absent.
func OptionalAddress(buf []byte) (string, bool, error) {
	if len(buf) == 0 || buf[0] == 0 {
		return "", false, nil
	}
	if buf[0] != 1 {
		return "", false, fmt.Errorf("%w: option tag %d", ErrMalformed, buf[0])
	}
	if len(buf) < 2 {
		return "", false, fmt.Errorf("%w: option present but no address bytes", ErrMalformed)
	}
	return "0x" + hex.EncodeToString(buf[1:]), true, nil
}

// StringList decodes a sequence of length-prefixed byte runs: a 4-byte
// little-endian entry count followed by entries, each a 4-byte
// little-endian length and that many bytes of text. Decoding stops and
// returns the partial list whenever a prefix would read past the buffer
// end; it never indexes out of bounds.
func StringList(buf []byte) []string {
	out := []string{}
	if len(buf) < 4 {
		return out
	}
	off := 4 // entry count, trusted only as framing
	for off+4 <= len(buf) {
		n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		if n < 0 || off+n > len(buf) {
			break
		}
		out = append(out, string(buf[off:off+n]))
		off += n
	}
	return out
}
