package wasm

import (
	"fmt"

	"github.com/wippyai/nashorn-compat/wasm/internal/binary"
)

// DecodeConstants parses a constant pool payload: a vector of UTF-8 strings.
func DecodeConstants(data []byte) ([]string, error) {
	r := binary.NewReader(data)
	count, err := r.ReadCount()
	if err != nil {
		return nil, r.WrapError("constant pool", err)
	}
	out := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		s, err := r.ReadName()
		if err != nil {
			return nil, r.WrapError("constant pool", err)
		}
		out = append(out, s)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("constant pool: %d trailing bytes", r.Len())
	}
	return out, nil
}

// EncodeConstants serializes a constant pool payload.
func EncodeConstants(values []string) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(values)))
	for _, v := range values {
		w.WriteName(v)
	}
	return w.Bytes()
}
