// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package saveload

import (
	"encoding/binary"
	"unsafe"
)

// Dumper drives the size and write modes of the walker, accumulating
// one chunk payload in memory. Writing always emits the running
// build's own format: every field whose current-generation range
// covers CurrentVersion, at full width, big-endian.
//
// Size and write follow the same gating, so ObjSize is exact for the
// bytes WriteObject produces. Chunk save code depends on that when it
// frames elements.
type Dumper struct {
	buf []byte
	tag Tag

	// StoreStringID interns a name string and returns its table id,
	// for MemName fields. Only saves carrying legacy name fields at
	// CurrentVersion need it.
	StoreStringID func(name string) (uint16, error)
}

// NewDumper returns an empty dumper for the given chunk.
func NewDumper(tag Tag) *Dumper {
	return &Dumper{tag: tag}
}

// Size returns the number of bytes written so far.
func (d *Dumper) Size() int { return len(d.buf) }

// Bytes returns the accumulated payload. The slice aliases the
// dumper's buffer.
func (d *Dumper) Bytes() []byte { return d.buf }

// Flush appends this dumper's payload to another and resets it.
// Chunk save code sizes an element into a scratch dumper, frames it,
// then flushes it into the chunk dumper.
func (d *Dumper) Flush(dst *Dumper) {
	dst.buf = append(dst.buf, d.buf...)
	d.buf = d.buf[:0]
}

// WriteUint8 appends a single byte.
func (d *Dumper) WriteUint8(b byte) {
	d.buf = append(d.buf, b)
}

// WriteBytes appends raw bytes.
func (d *Dumper) WriteBytes(data []byte) {
	d.buf = append(d.buf, data...)
}

// WriteUint16 appends a big-endian 16-bit value.
func (d *Dumper) WriteUint16(v uint16) {
	d.buf = binary.BigEndian.AppendUint16(d.buf, v)
}

// WriteUint32 appends a big-endian 32-bit value.
func (d *Dumper) WriteUint32(v uint32) {
	d.buf = binary.BigEndian.AppendUint32(d.buf, v)
}

// WriteUint64 appends a big-endian 64-bit value.
func (d *Dumper) WriteUint64(v uint64) {
	d.buf = binary.BigEndian.AppendUint64(d.buf, v)
}

func (d *Dumper) writeUvarint(v uint64) {
	d.buf = binary.AppendUvarint(d.buf, v)
}

// WriteElementHeader frames the next array element: its storage index
// and exact payload size. Indices are biased by one on disk so a zero
// marker can terminate the chunk.
func (d *Dumper) WriteElementHeader(index int, size int) {
	d.writeUvarint(uint64(index) + 1)
	d.writeUvarint(uint64(size))
}

// EndChunk terminates an array chunk's element sequence.
func (d *Dumper) EndChunk() {
	d.writeUvarint(0)
}

// WriteElement writes one framed array element: header, then the
// object under the table.
func (d *Dumper) WriteElement(index int, obj any, table *Table) error {
	d.WriteElementHeader(index, ObjSize(obj, table))
	return d.WriteObject(obj, table)
}

// ObjSize computes the exact number of payload bytes WriteObject
// would emit for the object under the table.
func ObjSize(obj any, table *Table) int {
	base := table.bind(obj)
	return fieldsSize(base, table)
}

func fieldsSize(base unsafe.Pointer, table *Table) int {
	size := 0
	for i := range table.fields {
		field := &table.fields[i]
		if !field.IsValidForCurrentVersion() || field.flags&FlagNotInSave != 0 {
			continue
		}
		switch field.kind {
		case KindVar:
			size += int(FileSize(VarType(field.conv)))
		case KindRef:
			size += 4
		case KindArray:
			size += int(FileSize(VarType(field.conv))) * int(field.length)
		case KindStr:
			size += strSize(field, field.address(base))
		case KindList:
			refs := *(*[]Ref)(field.address(base))
			size += 2 + 4*len(refs)
		case KindNull:
			size += int(field.length)
		case KindWriteByte:
			size++
		case KindInclude:
			size += fieldsSize(base, field.include)
		}
	}
	return size
}

func strSize(field *Field, ptr unsafe.Pointer) int {
	if field.length > 0 {
		return int(field.length)
	}
	size := len(*(*string)(ptr)) + 1
	if StrFlags(field.conv)&StrQuoted != 0 {
		size += 2
	}
	return size
}

// WriteObject applies the table in write mode, appending the object's
// payload bytes.
func (d *Dumper) WriteObject(obj any, table *Table) error {
	base := table.bind(obj)
	return d.writeFields(base, table)
}

func (d *Dumper) writeFields(base unsafe.Pointer, table *Table) error {
	for i := range table.fields {
		field := &table.fields[i]
		if !field.IsValidForCurrentVersion() || field.flags&FlagNotInSave != 0 {
			continue
		}
		var err error
		switch field.kind {
		case KindVar:
			err = d.writeVar(field, field.address(base))
		case KindRef:
			d.WriteUint32(uint32(*(*Ref)(field.address(base))))
		case KindArray:
			d.writeArray(field, field.address(base))
		case KindStr:
			d.writeStr(field, field.address(base))
		case KindList:
			err = d.writeList(field, field.address(base))
		case KindNull:
			d.buf = append(d.buf, make([]byte, field.length)...)
		case KindWriteByte:
			d.WriteUint8(field.conv)
		case KindInclude:
			err = d.writeFields(base, field.include)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// encodeFile appends one on-disk value of the VarType's file kind,
// truncating the widened memory value as needed.
func (d *Dumper) encodeFile(conv VarType, value int64) {
	switch FileKind(conv) {
	case FileI8, FileU8:
		d.WriteUint8(byte(value))
	case FileI16, FileU16, FileStringID:
		d.WriteUint16(uint16(value))
	case FileI32, FileU32:
		d.WriteUint32(uint32(value))
	case FileI64, FileU64:
		d.WriteUint64(uint64(value))
	}
}

func (d *Dumper) writeVar(field *Field, ptr unsafe.Pointer) error {
	conv := VarType(field.conv)
	if MemKind(conv) == MemName {
		name := *(*string)(ptr)
		if d.StoreStringID == nil {
			return corruptf(d.tag, field.name, "no string table available to store name %q", name)
		}
		id, err := d.StoreStringID(name)
		if err != nil {
			return corruptf(d.tag, field.name, "storing name %q: %v", name, err)
		}
		d.WriteUint16(id)
		return nil
	}
	d.encodeFile(conv, loadMemory(ptr, conv))
	return nil
}

func (d *Dumper) writeArray(field *Field, ptr unsafe.Pointer) {
	conv := VarType(field.conv)
	stride := MemSize(conv)
	for i := 0; i < int(field.length); i++ {
		d.encodeFile(conv, loadMemory(unsafe.Add(ptr, uintptr(i)*stride), conv))
	}
}

func (d *Dumper) writeStr(field *Field, ptr unsafe.Pointer) {
	if field.length > 0 {
		d.WriteBytes(unsafe.Slice((*byte)(ptr), int(field.length)))
		return
	}
	s := *(*string)(ptr)
	quoted := StrFlags(field.conv)&StrQuoted != 0
	if quoted {
		d.WriteUint8('"')
	}
	d.WriteBytes([]byte(s))
	if quoted {
		d.WriteUint8('"')
	}
	d.WriteUint8(0)
}

func (d *Dumper) writeList(field *Field, ptr unsafe.Pointer) error {
	refs := *(*[]Ref)(ptr)
	if len(refs) > 0xFFFF {
		return corruptf(d.tag, field.name, "reference list of %d entries exceeds the 16-bit count", len(refs))
	}
	d.WriteUint16(uint16(len(refs)))
	for _, ref := range refs {
		d.WriteUint32(uint32(ref))
	}
	return nil
}
