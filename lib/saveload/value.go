// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package saveload

import (
	"fmt"
	"unsafe"
)

// loadMemory reads the numeric value behind ptr according to the
// VarType's memory kind, widened to int64. Signed kinds sign-extend,
// unsigned kinds zero-extend (a u64 passes through bit-identically).
func loadMemory(ptr unsafe.Pointer, conv VarType) int64 {
	switch MemKind(conv) {
	case MemBool:
		if *(*bool)(ptr) {
			return 1
		}
		return 0
	case MemI8:
		return int64(*(*int8)(ptr))
	case MemU8:
		return int64(*(*uint8)(ptr))
	case MemI16:
		return int64(*(*int16)(ptr))
	case MemU16:
		return int64(*(*uint16)(ptr))
	case MemI32:
		return int64(*(*int32)(ptr))
	case MemU32:
		return int64(*(*uint32)(ptr))
	case MemI64:
		return *(*int64)(ptr)
	case MemU64:
		return int64(*(*uint64)(ptr))
	}
	panic(fmt.Sprintf("saveload: loadMemory of non-numeric VarType %#02x", byte(conv)))
}

// storeMemory writes value behind ptr according to the VarType's
// memory kind. Narrowing truncates low bits: lossy but deterministic,
// never an error — some legacy fields legitimately narrow.
func storeMemory(ptr unsafe.Pointer, conv VarType, value int64) {
	switch MemKind(conv) {
	case MemBool:
		*(*bool)(ptr) = value != 0
	case MemI8:
		*(*int8)(ptr) = int8(value)
	case MemU8:
		*(*uint8)(ptr) = uint8(value)
	case MemI16:
		*(*int16)(ptr) = int16(value)
	case MemU16:
		*(*uint16)(ptr) = uint16(value)
	case MemI32:
		*(*int32)(ptr) = int32(value)
	case MemU32:
		*(*uint32)(ptr) = uint32(value)
	case MemI64:
		*(*int64)(ptr) = value
	case MemU64:
		*(*uint64)(ptr) = uint64(value)
	default:
		panic(fmt.Sprintf("saveload: storeMemory of non-numeric VarType %#02x", byte(conv)))
	}
}
