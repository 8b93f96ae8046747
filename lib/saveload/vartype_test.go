// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package saveload

import "testing"

func TestVarTypeNibbles(t *testing.T) {
	if got := FileKind(FileU16 | MemU32); got != FileU16 {
		t.Errorf("FileKind(FileU16|MemU32) = %#02x, want FileU16", byte(got))
	}
	if got := MemKind(FileU16 | MemU32); got != MemU32 {
		t.Errorf("MemKind(FileU16|MemU32) = %#02x, want MemU32", byte(got))
	}
}

func TestVarTypeSizes(t *testing.T) {
	cases := []struct {
		conv VarType
		mem  uintptr
		file uint
	}{
		{Bool, 1, 1},
		{Int8, 1, 1},
		{Uint8, 1, 1},
		{Int16, 2, 2},
		{Uint16, 2, 2},
		{Int32, 4, 4},
		{Uint32, 4, 4},
		{Int64, 8, 8},
		{Uint64, 8, 8},
		{StringID, 2, 2},
		{FileU16 | MemU32, 4, 2},
		{FileI8 | MemI32, 4, 1},
	}
	for _, c := range cases {
		if got := MemSize(c.conv); got != c.mem {
			t.Errorf("MemSize(%#02x) = %d, want %d", byte(c.conv), got, c.mem)
		}
		if got := FileSize(c.conv); got != c.file {
			t.Errorf("FileSize(%#02x) = %d, want %d", byte(c.conv), got, c.file)
		}
	}
}

func TestVarTypeNumeric(t *testing.T) {
	if !IsNumeric(Bool) {
		t.Error("Bool must count as numeric")
	}
	if !IsNumeric(Uint64) {
		t.Error("Uint64 must count as numeric")
	}
	if IsNumeric(Name) {
		t.Error("Name must not count as numeric")
	}
}

func TestMemSizePanicsOnName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MemSize(Name) did not panic")
		}
	}()
	MemSize(Name)
}

func TestNameFileWidth(t *testing.T) {
	// A name is a string table id on disk: two bytes whatever its
	// in-memory representation.
	if got := FileSize(Name); got != 2 {
		t.Errorf("FileSize(Name) = %d, want 2", got)
	}
}
