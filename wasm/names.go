package wasm

import (
	"fmt"

	"github.com/wippyai/nashorn-compat/wasm/internal/binary"
)

const (
	nameSubModule   byte = 0
	nameSubFunction byte = 1
)

// NameAssoc associates a function index with its debug name.
type NameAssoc struct {
	Name  string
	Index uint32
}

type nameSub struct {
	raw []byte
	id  byte
}

// Names is the decoded view of the "name" custom section. Only the module
// and function subsections are decoded; the rest are kept raw and written
// back in their original order.
type Names struct {
	Module    string
	Functions []NameAssoc
	HasModule bool

	subs []nameSub
}

// DecodeNames parses the payload of a "name" custom section.
func DecodeNames(data []byte) (*Names, error) {
	r := binary.NewReader(data)
	n := &Names{}
	seenModule, seenFuncs := false, false

	for r.Len() > 0 {
		id, _ := r.ReadByte()
		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("name subsection", err)
		}
		payload, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, r.WrapError("name subsection", err)
		}

		sub := nameSub{id: id}
		sr := binary.NewReader(payload)

		switch {
		case id == nameSubModule && !seenModule:
			if n.Module, err = sr.ReadName(); err != nil {
				return nil, sr.WrapError("module name", err)
			}
			n.HasModule = true
			seenModule = true
		case id == nameSubFunction && !seenFuncs:
			if n.Functions, err = readNameMap(sr); err != nil {
				return nil, fmt.Errorf("function names: %w", err)
			}
			seenFuncs = true
		default:
			sub.raw = payload
		}
		if sub.raw == nil && sr.Len() != 0 {
			return nil, fmt.Errorf("name subsection %d: %d trailing bytes", id, sr.Len())
		}
		n.subs = append(n.subs, sub)
	}
	return n, nil
}

func readNameMap(r *binary.Reader) ([]NameAssoc, error) {
	count, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	out := make([]NameAssoc, 0, count)
	for i := uint32(0); i < count; i++ {
		idx, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		out = append(out, NameAssoc{Index: idx, Name: name})
	}
	return out, nil
}

// Encode serializes the section payload. Subsections keep their order;
// decoded subsections that were absent on input are appended in id order.
func (n *Names) Encode() []byte {
	w := binary.NewWriter()
	wroteModule, wroteFuncs := false, false

	writeModule := func() {
		sw := binary.NewWriter()
		sw.WriteName(n.Module)
		w.Section(nameSubModule, sw.Bytes())
		wroteModule = true
	}
	writeFuncs := func() {
		sw := binary.NewWriter()
		sw.WriteU32(uint32(len(n.Functions)))
		for _, f := range n.Functions {
			sw.WriteU32(f.Index)
			sw.WriteName(f.Name)
		}
		w.Section(nameSubFunction, sw.Bytes())
		wroteFuncs = true
	}

	for _, sub := range n.subs {
		switch {
		case sub.raw != nil:
			if sub.id > nameSubFunction {
				if n.HasModule && !wroteModule {
					writeModule()
				}
				if len(n.Functions) > 0 && !wroteFuncs {
					writeFuncs()
				}
			}
			w.Section(sub.id, sub.raw)
		case sub.id == nameSubModule:
			if n.HasModule {
				writeModule()
			}
		case sub.id == nameSubFunction:
			writeFuncs()
		}
	}
	if n.HasModule && !wroteModule {
		writeModule()
	}
	if len(n.Functions) > 0 && !wroteFuncs {
		writeFuncs()
	}
	return w.Bytes()
}

// Clone returns a deep copy of the decoded names.
func (n *Names) Clone() *Names {
	if n == nil {
		return nil
	}
	c := *n
	c.Functions = append([]NameAssoc(nil), n.Functions...)
	c.subs = append([]nameSub(nil), n.subs...)
	return &c
}

// Equal reports whether both views decode to the same names.
func (n *Names) Equal(o *Names) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.HasModule != o.HasModule || n.Module != o.Module || len(n.Functions) != len(o.Functions) {
		return false
	}
	for i := range n.Functions {
		if n.Functions[i] != o.Functions[i] {
			return false
		}
	}
	return true
}

// FunctionName returns the debug name of function idx.
func (n *Names) FunctionName(idx uint32) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, f := range n.Functions {
		if f.Index == idx {
			return f.Name, true
		}
	}
	return "", false
}
