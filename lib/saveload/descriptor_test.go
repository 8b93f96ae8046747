// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package saveload

import (
	"strings"
	"testing"
)

func mustPanic(t *testing.T, want string, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("no panic, want one mentioning %q", want)
		}
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, want) {
			t.Fatalf("panic %v, want one mentioning %q", r, want)
		}
	}()
	f()
}

type tableRecord struct {
	Count  uint32
	Flags  uint8
	Ratio  int16
	Owner  Ref
	Riders []Ref
	Label  [8]byte
	Note   string
	Nested struct {
		Depth uint16
	}
}

func TestBuilderValidatesWidths(t *testing.T) {
	// The declared memory nibble must match the real field width.
	mustPanic(t, "4-byte memory", func() {
		NewTable[tableRecord]().Var("Flags", Uint32).Build()
	})
	mustPanic(t, "1-byte", func() {
		NewTable[tableRecord]().Var("Count", FileU8|MemU8).Build()
	})
}

func TestBuilderValidatesPaths(t *testing.T) {
	mustPanic(t, "no field", func() {
		NewTable[tableRecord]().Var("Missing", Uint32).Build()
	})
	mustPanic(t, "no field", func() {
		NewTable[tableRecord]().Var("Nested.Missing", Uint16).Build()
	})
}

func TestBuilderValidatesKinds(t *testing.T) {
	mustPanic(t, "saveload.Ref field", func() {
		NewTable[tableRecord]().Ref("Count", 1).Build()
	})
	mustPanic(t, "[]saveload.Ref field", func() {
		NewTable[tableRecord]().List("Label", 1).Build()
	})
	mustPanic(t, "StrQuoted", func() {
		NewTable[tableRecord]().Str("Label", StrQuoted).Build()
	})
	mustPanic(t, "string or [N]byte", func() {
		NewTable[tableRecord]().Str("Count", 0).Build()
	})
	mustPanic(t, "exceed", func() {
		NewTable[tableRecord]().Array("Label", Uint16, 8).Build()
	})
	mustPanic(t, "exceed", func() {
		NewTable[tableRecord]().Array("Label", Uint8, 9).Build()
	})
	// A declaration that fits the storage must still match the element
	// width.
	mustPanic(t, "2-byte memory", func() {
		NewTable[tableRecord]().Array("Label", Uint16, 4).Build()
	})
}

func TestBuilderDottedPaths(t *testing.T) {
	table := NewTable[tableRecord]().
		Var("Nested.Depth", Uint16).
		Build()
	record := tableRecord{}
	record.Nested.Depth = 0x1234

	if got := ObjSize(&record, table); got != 2 {
		t.Fatalf("ObjSize = %d, want 2", got)
	}
	d := NewDumper(MakeTag("TEST"))
	if err := d.WriteObject(&record, table); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x12, 0x34}
	if string(d.Bytes()) != string(want) {
		t.Fatalf("payload = %x, want %x", d.Bytes(), want)
	}
}

func TestVersionRangeGating(t *testing.T) {
	table := NewTable[tableRecord]().
		Var("Count", Uint32).
		Var("Ratio", Int16, CurrentFrom(5), NoLegacy()).
		Var("Flags", Uint8, NoCurrent(), Legacy(0, 54)).
		Build()
	fields := table.Fields()

	early := Stamp{Generation: GenCurrent, Version: 4}
	late := Stamp{Generation: GenCurrent, Version: 5}
	oldLegacy := Stamp{Generation: LegacyOTTD, Version: 54}
	newLegacy := Stamp{Generation: LegacyOTTD, Version: 55}

	// Count is everywhere.
	for _, s := range []Stamp{early, late, oldLegacy, newLegacy} {
		if !fields[0].IsValidFor(s) {
			t.Errorf("Count invalid for %v", s)
		}
	}
	// Ratio only in current saves since v5.
	if fields[1].IsValidFor(early) {
		t.Error("Ratio valid before its introduction")
	}
	if !fields[1].IsValidFor(late) {
		t.Error("Ratio invalid at its introduction version")
	}
	if fields[1].IsValidFor(oldLegacy) {
		t.Error("Ratio valid in a legacy save")
	}
	// Flags only in legacy saves up to v54.
	if !fields[2].IsValidFor(oldLegacy) {
		t.Error("Flags invalid in legacy v54")
	}
	if fields[2].IsValidFor(newLegacy) {
		t.Error("Flags valid in legacy v55")
	}
	if fields[2].IsValidFor(late) {
		t.Error("Flags valid in a current save")
	}
	if fields[2].IsValidForCurrentVersion() {
		t.Error("Flags valid for the write path")
	}
}

func TestNotInSaveExcluded(t *testing.T) {
	table := NewTable[tableRecord]().
		Var("Count", Uint32).
		Var("Ratio", Int16, NotInSave()).
		Build()

	record := tableRecord{Count: 1, Ratio: 2}
	if got := ObjSize(&record, table); got != 4 {
		t.Fatalf("ObjSize = %d, want 4 (NotInSave field must not be sized)", got)
	}
	if table.Fields()[1].IsValidFor(CurrentStamp()) {
		t.Error("NotInSave field reported valid for reading")
	}
}

func TestGlobalOnlyTableWalksWithNilObject(t *testing.T) {
	var counter uint16
	table := NewGlobalTable().
		GlobalVar("counter", &counter, Uint16).
		Build()

	counter = 0xBEEF
	d := NewDumper(MakeTag("TEST"))
	if err := d.WriteObject(nil, table); err != nil {
		t.Fatal(err)
	}
	counter = 0
	r := NewReader(d.Bytes(), CurrentStamp(), MakeTag("TEST"), false)
	if err := r.ReadObject(nil, table); err != nil {
		t.Fatal(err)
	}
	if counter != 0xBEEF {
		t.Fatalf("counter = %#x, want 0xBEEF", counter)
	}
}

func TestStructTableRejectsNilObject(t *testing.T) {
	table := NewTable[tableRecord]().Var("Count", Uint32).Build()
	mustPanic(t, "without an object", func() {
		ObjSize(nil, table)
	})
}

func TestTableRejectsWrongObjectType(t *testing.T) {
	table := NewTable[tableRecord]().Var("Count", Uint32).Build()
	mustPanic(t, "applied to", func() {
		var wrong struct{ Count uint32 }
		ObjSize(&wrong, table)
	})
}
