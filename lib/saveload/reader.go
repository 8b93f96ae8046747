// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package saveload

import (
	"bytes"
	"encoding/binary"
	"unsafe"
)

// Reader drives the read mode of the walker over one fully
// materialized chunk payload. It performs no I/O: the physical layer
// hands it decompressed, integrity-checked bytes.
//
// Errors are sticky: the first failure poisons the reader and every
// subsequent operation is a no-op. ReadObject and IterateChunk report
// the sticky error, so chunk load code can stay linear.
type Reader struct {
	buf   []byte
	pos   int
	stamp Stamp
	tag   Tag
	array bool

	// elementEnd bounds the current array element, -1 outside one.
	elementEnd int

	err error

	// ResolveStringID translates a legacy string table id into its
	// in-memory string, for MemName fields. Saves predating the
	// dynamic name field store names this way; the string table
	// itself is outside the engine.
	ResolveStringID func(id uint16) (string, error)
}

// NewReader wraps a chunk payload for reading under the given stamp.
// array selects the indexed-element framing driven by IterateChunk.
func NewReader(payload []byte, stamp Stamp, tag Tag, array bool) *Reader {
	return &Reader{buf: payload, stamp: stamp, tag: tag, array: array, elementEnd: -1}
}

// Stamp returns the version stamp of the save being read.
func (r *Reader) Stamp() Stamp { return r.stamp }

// Before reports whether the save predates the given
// current-generation version.
func (r *Reader) Before(version uint16) bool { return r.stamp.BeforeCurrent(version) }

// BeforeLegacy reports whether the save is a legacy save older than
// the given legacy major version.
func (r *Reader) BeforeLegacy(major uint16) bool { return r.stamp.BeforeLegacy(major) }

// Err returns the sticky error, if any.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unconsumed payload bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Finish reports the sticky error, or a corruption error if the
// payload was not fully consumed. The orchestrator calls it after the
// chunk handler returns.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if r.pos != len(r.buf) {
		return corruptf(r.tag, "", "%d trailing bytes in chunk payload", len(r.buf)-r.pos)
	}
	return nil
}

func (r *Reader) fail(field, format string, args ...any) {
	if r.err == nil {
		r.err = corruptf(r.tag, field, format, args...)
	}
}

// limit returns the read bound: the current element's end inside an
// array element, the payload end otherwise.
func (r *Reader) limit() int {
	if r.elementEnd >= 0 {
		return r.elementEnd
	}
	return len(r.buf)
}

func (r *Reader) readBytes(field string, n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > r.limit() {
		r.fail(field, "truncated: need %d bytes, %d available", n, r.limit()-r.pos)
		return nil
	}
	data := r.buf[r.pos : r.pos+n]
	r.pos += n
	return data
}

// ReadUint8 consumes a single byte. Chunk drivers use it to peek the
// variant tag written by a WriteByte descriptor before choosing the
// matching table.
func (r *Reader) ReadUint8() byte {
	data := r.readBytes("", 1)
	if data == nil {
		return 0
	}
	return data[0]
}

// ReadUint16 consumes a big-endian 16-bit value.
func (r *Reader) ReadUint16() uint16 {
	data := r.readBytes("", 2)
	if data == nil {
		return 0
	}
	return binary.BigEndian.Uint16(data)
}

// ReadUint32 consumes a big-endian 32-bit value.
func (r *Reader) ReadUint32() uint32 {
	data := r.readBytes("", 4)
	if data == nil {
		return 0
	}
	return binary.BigEndian.Uint32(data)
}

// ReadUint64 consumes a big-endian 64-bit value.
func (r *Reader) ReadUint64() uint64 {
	data := r.readBytes("", 8)
	if data == nil {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

// readUvarint consumes an unsigned varint (element framing only;
// field payloads use fixed widths).
func (r *Reader) readUvarint(field string) uint64 {
	if r.err != nil {
		return 0
	}
	value, n := binary.Uvarint(r.buf[r.pos:r.limit()])
	if n <= 0 {
		r.fail(field, "malformed element varint")
		return 0
	}
	r.pos += n
	return value
}

// IterateChunk returns the next stored element index, or -1 at the
// end of the chunk. Indices are arbitrary non-negative values —
// legacy deletions leave holes — and double as the storage slots
// reference ids name. The previous element must have been consumed
// exactly.
func (r *Reader) IterateChunk() (int, error) {
	if r.err != nil {
		return -1, r.err
	}
	if !r.array {
		r.fail("", "IterateChunk on a non-array chunk")
		return -1, r.err
	}
	if r.elementEnd >= 0 && r.pos != r.elementEnd {
		r.fail("", "element not fully consumed: %d bytes left", r.elementEnd-r.pos)
		return -1, r.err
	}
	r.elementEnd = -1

	marker := r.readUvarint("")
	if r.err != nil {
		return -1, r.err
	}
	if marker == 0 {
		return -1, nil
	}
	index := marker - 1
	size := r.readUvarint("")
	if r.err != nil {
		return -1, r.err
	}
	if r.pos+int(size) > len(r.buf) {
		r.fail("", "element %d overruns chunk payload", index)
		return -1, r.err
	}
	r.elementEnd = r.pos + int(size)
	return int(index), nil
}

// ReadObject applies the table in read mode: every descriptor valid
// for the save's stamp is decoded from the payload and stored into
// the object. Skipped fields keep their prior (zero-initialized)
// values. Reference fields receive raw slot ids; phase 2 resolves
// them.
func (r *Reader) ReadObject(obj any, table *Table) error {
	base := table.bind(obj)
	r.readFields(base, table)
	return r.err
}

func (r *Reader) readFields(base unsafe.Pointer, table *Table) {
	for i := range table.fields {
		if r.err != nil {
			return
		}
		field := &table.fields[i]
		if !field.IsValidFor(r.stamp) {
			continue
		}
		switch field.kind {
		case KindVar:
			r.readVar(field, field.address(base))
		case KindRef:
			r.readRef(field, field.address(base))
		case KindArray:
			r.readArray(field, field.address(base))
		case KindStr:
			r.readStr(field, field.address(base))
		case KindList:
			r.readList(field, field.address(base))
		case KindNull:
			r.readBytes(field.name, int(field.length))
		case KindWriteByte:
			// Not visited: the chunk driver consumed the tag byte
			// before dispatching to this table.
		case KindInclude:
			r.readFields(base, field.include)
		}
	}
}

// decodeFile consumes one on-disk value of the VarType's file kind,
// sign-extending signed kinds into int64.
func (r *Reader) decodeFile(field string, conv VarType) int64 {
	switch FileKind(conv) {
	case FileI8:
		return int64(int8(r.ReadUint8()))
	case FileU8:
		return int64(r.ReadUint8())
	case FileI16:
		return int64(int16(r.ReadUint16()))
	case FileU16, FileStringID:
		return int64(r.ReadUint16())
	case FileI32:
		return int64(int32(r.ReadUint32()))
	case FileU32:
		return int64(r.ReadUint32())
	case FileI64, FileU64:
		return int64(r.ReadUint64())
	default:
		r.fail(field, "unknown file kind %#02x", byte(FileKind(conv)))
		return 0
	}
}

func (r *Reader) readVar(field *Field, ptr unsafe.Pointer) {
	conv := VarType(field.conv)
	if MemKind(conv) == MemName {
		id := r.ReadUint16()
		if r.err != nil {
			return
		}
		if r.ResolveStringID == nil {
			r.fail(field.name, "save contains a legacy name id %d but no string table resolver is attached", id)
			return
		}
		name, err := r.ResolveStringID(id)
		if err != nil {
			r.fail(field.name, "resolving legacy name id %d: %v", id, err)
			return
		}
		*(*string)(ptr) = name
		return
	}
	value := r.decodeFile(field.name, conv)
	if r.err == nil {
		storeMemory(ptr, conv, value)
	}
}

// refWidth is the on-disk width of a reference id: legacy saves
// before version 69 stored 16-bit ids, everything since stores 32.
func refWidth(stamp Stamp) int {
	if stamp.BeforeLegacy(69) {
		return 2
	}
	return 4
}

func (r *Reader) readRefValue(field string) Ref {
	data := r.readBytes(field, refWidth(r.stamp))
	if data == nil {
		return 0
	}
	if len(data) == 2 {
		return Ref(binary.BigEndian.Uint16(data))
	}
	return Ref(binary.BigEndian.Uint32(data))
}

func (r *Reader) readRef(field *Field, ptr unsafe.Pointer) {
	raw := r.readRefValue(field.name)
	if r.err == nil {
		*(*Ref)(ptr) = raw
	}
}

func (r *Reader) readArray(field *Field, ptr unsafe.Pointer) {
	conv := VarType(field.conv)
	stride := MemSize(conv)
	for i := 0; i < int(field.length); i++ {
		value := r.decodeFile(field.name, conv)
		if r.err != nil {
			return
		}
		storeMemory(unsafe.Add(ptr, uintptr(i)*stride), conv, value)
	}
}

func (r *Reader) readList(field *Field, ptr unsafe.Pointer) {
	count := int(r.ReadUint16())
	if r.err != nil {
		return
	}
	refs := make([]Ref, count)
	for i := range refs {
		refs[i] = r.readRefValue(field.name)
		if r.err != nil {
			return
		}
	}
	*(*[]Ref)(ptr) = refs
}

// validateString enforces the read-side encoding policy: control
// codes and newlines are input-validation failures unless the
// descriptor's flags permit them.
func (r *Reader) validateString(field string, contents []byte, flags StrFlags) bool {
	for _, b := range contents {
		switch {
		case b == '\n' || b == '\r':
			if flags&StrAllowNewline == 0 {
				r.fail(field, "string contains a newline")
				return false
			}
		case b < 0x20:
			if flags&StrAllowControl == 0 {
				r.fail(field, "string contains control character %#02x", b)
				return false
			}
		}
	}
	return true
}

func (r *Reader) readStr(field *Field, ptr unsafe.Pointer) {
	flags := StrFlags(field.conv)
	if field.length > 0 {
		// Fixed buffer: exactly length bytes on disk, NUL-padded.
		data := r.readBytes(field.name, int(field.length))
		if r.err != nil {
			return
		}
		contents := data
		if end := bytes.IndexByte(data, 0); end >= 0 {
			contents = data[:end]
		}
		if !r.validateString(field.name, contents, flags) {
			return
		}
		buffer := unsafe.Slice((*byte)(ptr), int(field.length))
		copy(buffer, data)
		return
	}

	// Dynamic string: bytes up to a terminator.
	rest := r.buf[r.pos:r.limit()]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		r.fail(field.name, "unterminated string")
		return
	}
	contents := rest[:end]
	r.pos += end + 1
	if flags&StrQuoted != 0 {
		if len(contents) < 2 || contents[0] != '"' || contents[len(contents)-1] != '"' {
			r.fail(field.name, "string is not quoted")
			return
		}
		contents = contents[1 : len(contents)-1]
	}
	if !r.validateString(field.name, contents, flags) {
		return
	}
	*(*string)(ptr) = string(contents)
}
