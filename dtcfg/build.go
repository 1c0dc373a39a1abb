package dtcfg

import (
	"bytes"
	"encoding/binary"
)

// Prop is a property of a Tree.
type Prop struct {
	Name string
	Val  []byte
}

// Tree is an unflattened device tree node, for Encode.
type Tree struct {
	Name     string
	Props    []Prop
	Children []Tree
}

// Cells encodes v as big-endian cells.
func Cells(v ...uint32) []byte {
	b := make([]byte, 4*len(v))
	for i, c := range v {
		binary.BigEndian.PutUint32(b[4*i:], c)
	}
	return b
}

// StringList encodes s as a list of NUL-terminated strings.
func StringList(s ...string) []byte {
	var b []byte
	for _, v := range s {
		b = append(b, v...)
		b = append(b, 0)
	}
	return b
}

// Encode flattens root into a version 17 device tree with an empty
// memory reservation map.
func Encode(root Tree) []byte {
	var st, strtab bytes.Buffer
	offs := map[string]int{}
	put := func(v uint32) {
		binary.Write(&st, binary.BigEndian, v) // Can't fail on a bytes.Buffer
	}
	pad := func() {
		for st.Len()%4 != 0 {
			st.WriteByte(0)
		}
	}
	var emit func(n Tree)
	emit = func(n Tree) {
		put(1)
		st.WriteString(n.Name)
		st.WriteByte(0)
		pad()
		for _, p := range n.Props {
			off, ok := offs[p.Name]
			if !ok {
				off = strtab.Len()
				offs[p.Name] = off
				strtab.WriteString(p.Name)
				strtab.WriteByte(0)
			}
			put(3)
			put(uint32(len(p.Val)))
			put(uint32(off))
			st.Write(p.Val)
			pad()
		}
		for _, c := range n.Children {
			emit(c)
		}
		put(2)
	}
	emit(root)
	put(9)

	const rsv = fdtHeaderSize
	structOff := rsv + 16
	stringsOff := structOff + st.Len()
	total := stringsOff + strtab.Len()
	hdr := Cells(fdtMagic, uint32(total), uint32(structOff), uint32(stringsOff), rsv, 17, 16, 0, uint32(strtab.Len()), uint32(st.Len()))
	b := append(hdr, make([]byte, 16)...)
	b = append(b, st.Bytes()...)
	return append(b, strtab.Bytes()...)
}
