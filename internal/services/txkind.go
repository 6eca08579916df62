package services

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// BCS encoding of a single-command programmable transaction kind.
// Enum variants are tagged with ULEB128 indices; sequences are a
// ULEB128 length followed by the elements.

type bcsWriter struct {
	buf []byte
}

func (w *bcsWriter) bytes() []byte { return w.buf }

func (w *bcsWriter) raw(b []byte) { w.buf = append(w.buf, b...) }

func (w *bcsWriter) uleb(n uint64) {
	for n >= 0x80 {
		w.buf = append(w.buf, byte(n)|0x80)
		n >>= 7
	}
	w.buf = append(w.buf, byte(n))
}

func (w *bcsWriter) u16(n uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], n)
	w.raw(b[:])
}

func (w *bcsWriter) u64(n uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	w.raw(b[:])
}

func (w *bcsWriter) boolean(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// str writes a length-prefixed UTF-8 string, the encoding shared by
// identifiers and pure string values.
func (w *bcsWriter) str(s string) {
	w.uleb(uint64(len(s)))
	w.raw([]byte(s))
}

// callInput is one transaction input: either pre-encoded pure bytes
// or an object reference.
type callInput struct {
	pure   []byte
	object *objectInput
}

// objectInput carries the metadata an object argument serializes
// with. Shared objects use their initial shared version; owned and
// immutable objects use a full reference of version and digest.
type objectInput struct {
	id             [32]byte
	shared         bool
	initialVersion uint64
	version        uint64
	digest         []byte
}

// encodeTransactionKind builds TransactionKind::ProgrammableTransaction
// with the given inputs and a single MoveCall command targeting
// pkg::module::function. Command arguments reference the inputs in
// order.
func encodeTransactionKind(pkg, module, function string, typeArgs []string, inputs []callInput) ([]byte, error) {
	pkgAddr, err := parseAddress(pkg)
	if err != nil {
		return nil, fmt.Errorf("package address: %w", err)
	}

	w := &bcsWriter{}
	w.uleb(0) // TransactionKind::ProgrammableTransaction

	w.uleb(uint64(len(inputs)))
	for _, in := range inputs {
		if in.object != nil {
			w.uleb(1) // CallArg::Object
			obj := in.object
			if obj.shared {
				w.uleb(1) // ObjectArg::SharedObject
				w.raw(obj.id[:])
				w.u64(obj.initialVersion)
				w.boolean(false) // read-only access
			} else {
				w.uleb(0) // ObjectArg::ImmOrOwnedObject
				w.raw(obj.id[:])
				w.u64(obj.version)
				w.uleb(uint64(len(obj.digest)))
				w.raw(obj.digest)
			}
			continue
		}
		w.uleb(0) // CallArg::Pure
		w.uleb(uint64(len(in.pure)))
		w.raw(in.pure)
	}

	w.uleb(1) // one command
	w.uleb(0) // Command::MoveCall
	w.raw(pkgAddr[:])
	w.str(module)
	w.str(function)
	w.uleb(uint64(len(typeArgs)))
	for _, tag := range typeArgs {
		if err := writeTypeTag(w, tag); err != nil {
			return nil, err
		}
	}
	w.uleb(uint64(len(inputs)))
	for i := range inputs {
		w.uleb(1) // Argument::Input
		w.u16(uint16(i))
	}

	return w.bytes(), nil
}

var primitiveTypeTags = map[string]uint64{
	"bool":    0,
	"u8":      1,
	"u64":     2,
	"u128":    3,
	"address": 4,
	"u16":     8,
	"u32":     9,
	"u256":    10,
}

// writeTypeTag encodes a primitive type name or a non-generic
// addr::module::Name struct tag.
func writeTypeTag(w *bcsWriter, tag string) error {
	if variant, ok := primitiveTypeTags[tag]; ok {
		w.uleb(variant)
		return nil
	}
	if strings.ContainsAny(tag, "<>") {
		return fmt.Errorf("generic type argument %q not supported", tag)
	}
	parts := strings.Split(tag, "::")
	if len(parts) != 3 {
		return fmt.Errorf("malformed type argument %q", tag)
	}
	addr, err := parseAddress(parts[0])
	if err != nil {
		return fmt.Errorf("type argument %q: %w", tag, err)
	}
	w.uleb(7) // TypeTag::Struct
	w.raw(addr[:])
	w.str(parts[1])
	w.str(parts[2])
	w.uleb(0) // no type parameters
	return nil
}

// parseAddress decodes a hex address, left-padding short forms like
// 0x2 and 0x6 to the full 32 bytes.
func parseAddress(s string) ([32]byte, error) {
	var addr [32]byte
	h := strings.TrimPrefix(s, "0x")
	if h == "" || len(h) > 64 {
		return addr, fmt.Errorf("invalid address %q", s)
	}
	if len(h)%2 != 0 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q", s)
	}
	copy(addr[32-len(b):], b)
	return addr, nil
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// base58Decode decodes an object digest. Leading '1' characters map
// to leading zero bytes.
func base58Decode(s string) ([]byte, error) {
	n := big.NewInt(0)
	radix := big.NewInt(58)
	for _, c := range s {
		idx := strings.IndexRune(base58Alphabet, c)
		if idx < 0 {
			return nil, fmt.Errorf("invalid digest character %q", c)
		}
		n.Mul(n, radix)
		n.Add(n, big.NewInt(int64(idx)))
	}
	decoded := n.Bytes()
	zeros := 0
	for zeros < len(s) && s[zeros] == '1' {
		zeros++
	}
	out := make([]byte, zeros+len(decoded))
	copy(out[zeros:], decoded)
	return out, nil
}
