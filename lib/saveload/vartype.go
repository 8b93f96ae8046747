// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package saveload

import "fmt"

// VarType packs the on-disk and in-memory primitive kinds of a value
// into one byte: the low nibble is the file kind (width and signedness
// as stored in the savegame), the high nibble is the memory kind (the
// Go field the value lives in at runtime). Savegames change over
// decades, so the two frequently disagree — a field widened from u16
// to u32 in memory keeps reading old saves through FileU16 | MemU32.
type VarType byte

// File kinds (low nibble). Protocol constants: the numeric values are
// part of every descriptor table and must never be reordered.
const (
	FileI8  VarType = 0
	FileU8  VarType = 1
	FileI16 VarType = 2
	FileU16 VarType = 3
	FileI32 VarType = 4
	FileU32 VarType = 5
	FileI64 VarType = 6
	FileU64 VarType = 7

	// FileStringID is a 16-bit offset into the legacy string table.
	// On disk it is two bytes; in memory it is either a plain u16 or,
	// for MemName fields, translated to a string through the reader's
	// ResolveStringID hook.
	FileStringID VarType = 8
)

// Memory kinds (high nibble).
const (
	MemBool VarType = 0 << 4
	MemI8   VarType = 1 << 4
	MemU8   VarType = 2 << 4
	MemI16  VarType = 3 << 4
	MemU16  VarType = 4 << 4
	MemI32  VarType = 5 << 4
	MemU32  VarType = 6 << 4
	MemI64  VarType = 7 << 4
	MemU64  VarType = 8 << 4

	// MemName marks a legacy custom name: stored on disk as a string
	// table id, held in memory as a resolved string.
	MemName VarType = 10 << 4
)

// Default file/memory combinations for fields whose on-disk width
// matches their in-memory width.
const (
	Bool     = FileI8 | MemBool
	Int8     = FileI8 | MemI8
	Uint8    = FileU8 | MemU8
	Int16    = FileI16 | MemI16
	Uint16   = FileU16 | MemU16
	Int32    = FileI32 | MemI32
	Uint32   = FileU32 | MemU32
	Int64    = FileI64 | MemI64
	Uint64   = FileU64 | MemU64
	StringID = FileStringID | MemU16
	Name     = FileStringID | MemName
)

// MemKind extracts the memory kind nibble.
func MemKind(v VarType) VarType { return v & 0xF0 }

// FileKind extracts the file kind nibble.
func FileKind(v VarType) VarType { return v & 0x0F }

// IsNumeric reports whether the memory kind is one of the numeric
// kinds. Booleans count as numeric (they are one-byte 0/1 values for
// sizing and conversion); MemName does not.
func IsNumeric(v VarType) bool { return MemKind(v) <= MemU64 }

// memSize is indexed by the memory kind nibble. Zero entries are
// non-numeric kinds for which MemSize must not be asked.
var memSize = [16]uintptr{1, 1, 1, 2, 2, 4, 4, 8, 8, 0, 0, 0, 0, 0, 0, 0}

// fileSize is indexed by the file kind nibble. FileStringID is two
// bytes on disk regardless of its in-memory representation.
var fileSize = [16]uint{1, 1, 2, 2, 4, 4, 8, 8, 2, 0, 0, 0, 0, 0, 0, 0}

// MemSize returns the in-memory width in bytes of a numeric VarType.
// Asking for the size of a non-numeric kind is a programming error in
// the descriptor table and panics.
func MemSize(v VarType) uintptr {
	if !IsNumeric(v) {
		panic(fmt.Sprintf("saveload: MemSize of non-numeric VarType %#02x", byte(v)))
	}
	return memSize[MemKind(v)>>4]
}

// FileSize returns the on-disk width in bytes of a VarType.
func FileSize(v VarType) uint {
	k := FileKind(v)
	if k > FileStringID {
		panic(fmt.Sprintf("saveload: FileSize of unknown file kind %#02x", byte(k)))
	}
	return fileSize[k]
}
