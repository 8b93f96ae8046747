// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package saveload

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"
)

// Kind is the descriptor kind: what sort of storage a [Field] walks.
type Kind uint8

const (
	// KindVar is a single numeric value.
	KindVar Kind = iota
	// KindRef is a reference to another pooled object, stored as a
	// slot id.
	KindRef
	// KindArray is a fixed-length run of numeric values.
	KindArray
	// KindStr is a string, either a fixed [N]byte buffer or a Go
	// string.
	KindStr
	// KindList is an ordered list of references.
	KindList
	// KindNull is dead padding in the savegame: skipped on read,
	// zero-filled on write. Used where a field was removed but old
	// saves still carry its bytes.
	KindNull
	// KindWriteByte emits a fixed constant on write and is not
	// visited on read; the chunk driver consumes the byte before
	// dispatching to the matching table. Used to tag which variant
	// of a union-like record follows.
	KindWriteByte
	// KindInclude splices another table into the traversal, keeping
	// that table's own version gating intact.
	KindInclude
)

// Flags direct saving and loading of a field.
type Flags uint8

const (
	// FlagGlobal marks a field addressed by absolute pointer rather
	// than by offset into the walked object.
	FlagGlobal Flags = 1 << 0
	// FlagNotInSave excludes the field from savegames entirely.
	FlagNotInSave Flags = 1 << 1
	// FlagNotInConfig excludes the field from config export.
	FlagNotInConfig Flags = 1 << 2
	// FlagNoNetworkSync excludes the field from network state sync
	// (it is still saved unless FlagNotInSave is also set).
	FlagNoNetworkSync Flags = 1 << 3
)

// VersionRange is an inclusive savegame version interval.
type VersionRange struct {
	From uint16
	To   uint16
}

var (
	fullRange  = VersionRange{0, MaxVersion}
	emptyRange = VersionRange{MaxVersion, 0}
)

// StrFlags direct string encoding (KindStr descriptors).
type StrFlags byte

const (
	// StrQuoted encloses the encoded string in double quotes.
	StrQuoted StrFlags = 1 << 0
	// StrAllowControl permits control codes in the string; without
	// it they are an input-validation failure on read.
	StrAllowControl StrFlags = 1 << 1
	// StrAllowNewline permits embedded newlines.
	StrAllowNewline StrFlags = 1 << 2
)

// Field is one declarative descriptor: how to size, write and read a
// single persisted value across every savegame version. Fields are
// built through [NewTable]; the zero value is not usable.
type Field struct {
	kind    Kind
	conv    byte // VarType, RefKind, StrFlags or WriteByte constant
	flags   Flags
	length  uint16
	version VersionRange // current-generation range
	legacy  VersionRange // legacy-generation range
	name    string       // dotted field path or global name, for diagnostics

	global  unsafe.Pointer // address, when FlagGlobal is set
	offset  uintptr        // offset into the walked object otherwise
	include *Table         // spliced table, for KindInclude
}

// Name returns the field's diagnostic name (the struct field path or
// the registered global name).
func (f *Field) Name() string { return f.name }

// Kind returns the descriptor kind.
func (f *Field) Kind() Kind { return f.kind }

// Flags returns the field's flags.
func (f *Field) Flags() Flags { return f.flags }

// Conv returns the raw conversion byte. Its meaning depends on the
// kind: VarType for Var/Array, RefKind for Ref/List, StrFlags for
// Str, the emitted constant for WriteByte.
func (f *Field) Conv() byte { return f.conv }

// IsValidFor reports whether the field is present in a save with the
// given stamp: the generation-matching version range must contain the
// stamp's version and FlagNotInSave must be unset. An invalid field
// is simply skipped by the walker, never an error.
func (f *Field) IsValidFor(stamp Stamp) bool {
	switch stamp.Generation {
	case GenCurrent:
		if stamp.Version < f.version.From || stamp.Version > f.version.To {
			return false
		}
	case LegacyOTTD:
		if stamp.Version < f.legacy.From || stamp.Version > f.legacy.To {
			return false
		}
	default:
		// Generations without a comparable version number carry a
		// field only if its legacy range reaches all the way down.
		if f.legacy.From > 0 {
			return false
		}
	}
	return f.flags&FlagNotInSave == 0
}

// IsValidForCurrentVersion reports whether the compiled-in
// CurrentVersion lies within the field's current-generation range.
// This gates the size and write paths, which always operate in the
// running build's own format.
func (f *Field) IsValidForCurrentVersion() bool {
	return CurrentVersion >= f.version.From && CurrentVersion <= f.version.To
}

// address resolves the storage location of the field: the global
// pointer as-is, or base plus the field's offset. base must be
// non-nil for non-global fields.
func (f *Field) address(base unsafe.Pointer) unsafe.Pointer {
	if f.flags&FlagGlobal != 0 {
		return f.global
	}
	if base == nil {
		panic(fmt.Sprintf("saveload: struct field %q walked without an object", f.name))
	}
	return unsafe.Add(base, f.offset)
}

// Table is an ordered sequence of field descriptors fully specifying
// how to size, write and read one structured record across versions.
// Tables are process-wide static data built once at startup.
type Table struct {
	fields []Field
	owner  reflect.Type // struct type the offsets apply to; nil for global-only tables
}

// Fields returns the descriptors in walk order.
func (t *Table) Fields() []Field { return t.fields }

// bind checks that obj is a pointer to the table's owner struct and
// returns its base address. A nil obj is allowed for tables that only
// address globals.
func (t *Table) bind(obj any) unsafe.Pointer {
	if obj == nil {
		if t.owner != nil {
			panic(fmt.Sprintf("saveload: table over %s walked without an object", t.owner))
		}
		return nil
	}
	value := reflect.ValueOf(obj)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		panic(fmt.Sprintf("saveload: object must be a non-nil pointer, got %T", obj))
	}
	if t.owner != nil && value.Type().Elem() != t.owner {
		panic(fmt.Sprintf("saveload: table over %s applied to %T", t.owner, obj))
	}
	return unsafe.Pointer(value.Pointer())
}

// FieldOption adjusts a descriptor under construction.
type FieldOption func(*Field)

// Current restricts the field to current-generation saves with
// version in [from, to].
func Current(from, to uint16) FieldOption {
	return func(f *Field) { f.version = VersionRange{from, to} }
}

// CurrentFrom restricts the field to current-generation versions from
// the given version onward.
func CurrentFrom(from uint16) FieldOption { return Current(from, MaxVersion) }

// Legacy restricts the field to legacy saves with version in
// [from, to].
func Legacy(from, to uint16) FieldOption {
	return func(f *Field) { f.legacy = VersionRange{from, to} }
}

// LegacyFrom restricts the field to legacy versions from the given
// version onward.
func LegacyFrom(from uint16) FieldOption { return Legacy(from, MaxVersion) }

// NoCurrent marks the field as absent from every current-generation
// save: it exists only to read legacy formats.
func NoCurrent() FieldOption {
	return func(f *Field) { f.version = emptyRange }
}

// NoLegacy marks the field as absent from every legacy save.
func NoLegacy() FieldOption {
	return func(f *Field) { f.legacy = emptyRange }
}

// NotInSave excludes the field from savegames.
func NotInSave() FieldOption {
	return func(f *Field) { f.flags |= FlagNotInSave }
}

// NotInConfig excludes the field from config export.
func NotInConfig() FieldOption {
	return func(f *Field) { f.flags |= FlagNotInConfig }
}

// NoNetworkSync excludes the field from network state sync.
func NoNetworkSync() FieldOption {
	return func(f *Field) { f.flags |= FlagNoNetworkSync }
}

// TableBuilder accumulates validated descriptors for the struct type
// T. Every added field is checked against the real layout of T at
// construction time; a mismatch between a descriptor and the struct
// it describes is a defect in the table, so validation failures
// panic.
type TableBuilder[T any] struct {
	typ    reflect.Type
	fields []Field
}

// NewTable starts a descriptor table over the struct type T.
func NewTable[T any]() *TableBuilder[T] {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		panic(fmt.Sprintf("saveload: table owner must be a struct, got %s", typ))
	}
	return &TableBuilder[T]{typ: typ}
}

// NewGlobalTable starts a descriptor table with no owner struct; only
// the Global* methods may be used on it.
func NewGlobalTable() *TableBuilder[struct{}] {
	return &TableBuilder[struct{}]{}
}

// lookup resolves a dotted field path ("Yard.Tile") within T,
// returning the field's type and its cumulative byte offset.
func (b *TableBuilder[T]) lookup(path string) (reflect.Type, uintptr) {
	if b.typ == nil {
		panic("saveload: struct fields cannot be added to a global-only table")
	}
	typ := b.typ
	var offset uintptr
	for _, name := range strings.Split(path, ".") {
		if typ.Kind() != reflect.Struct {
			panic(fmt.Sprintf("saveload: %s: %q is not a struct", b.typ, path))
		}
		field, ok := typ.FieldByName(name)
		if !ok || len(field.Index) != 1 {
			panic(fmt.Sprintf("saveload: %s has no field %q", b.typ, path))
		}
		offset += field.Offset
		typ = field.Type
	}
	return typ, offset
}

func (b *TableBuilder[T]) add(f Field, opts []FieldOption) *TableBuilder[T] {
	f.version = fullRange
	f.legacy = fullRange
	for _, opt := range opts {
		opt(&f)
	}
	b.fields = append(b.fields, f)
	return b
}

// checkConv validates that a VarType's declared memory kind matches
// the real storage type: the widths must agree exactly, booleans must
// be bool, MemName must be string.
func checkConv(owner, name string, typ reflect.Type, conv VarType) {
	switch MemKind(conv) {
	case MemName:
		if typ.Kind() != reflect.String {
			panic(fmt.Sprintf("saveload: %s.%s: MemName requires a string field, got %s", owner, name, typ))
		}
	case MemBool:
		if typ.Kind() != reflect.Bool {
			panic(fmt.Sprintf("saveload: %s.%s: MemBool requires a bool field, got %s", owner, name, typ))
		}
	default:
		if !IsNumeric(conv) {
			panic(fmt.Sprintf("saveload: %s.%s: unknown memory kind %#02x", owner, name, byte(conv)))
		}
		if typ.Kind() == reflect.Bool || typ.Kind() == reflect.String {
			panic(fmt.Sprintf("saveload: %s.%s: numeric VarType on %s field", owner, name, typ))
		}
		if typ.Size() != MemSize(conv) {
			panic(fmt.Sprintf("saveload: %s.%s: VarType declares %d-byte memory but field %s is %d bytes",
				owner, name, MemSize(conv), typ, typ.Size()))
		}
	}
}

var refType = reflect.TypeFor[Ref]()
var refSliceType = reflect.TypeFor[[]Ref]()

// Var adds a numeric field. The VarType's memory nibble must match
// the field's actual width.
func (b *TableBuilder[T]) Var(path string, conv VarType, opts ...FieldOption) *TableBuilder[T] {
	typ, offset := b.lookup(path)
	checkConv(b.typ.String(), path, typ, conv)
	return b.add(Field{kind: KindVar, conv: byte(conv), offset: offset, name: path}, opts)
}

// Ref adds a reference field. The field must be of type [Ref].
func (b *TableBuilder[T]) Ref(path string, kind RefKind, opts ...FieldOption) *TableBuilder[T] {
	typ, offset := b.lookup(path)
	if typ != refType {
		panic(fmt.Sprintf("saveload: %s.%s: Ref descriptor requires a saveload.Ref field, got %s", b.typ, path, typ))
	}
	return b.add(Field{kind: KindRef, conv: byte(kind), offset: offset, name: path}, opts)
}

// Array adds a fixed-length numeric array field. The element width
// times length must not exceed the field's allocated storage.
func (b *TableBuilder[T]) Array(path string, conv VarType, length uint16, opts ...FieldOption) *TableBuilder[T] {
	typ, offset := b.lookup(path)
	checkArray(b.typ.String(), path, typ, conv, length)
	return b.add(Field{kind: KindArray, conv: byte(conv), length: length, offset: offset, name: path}, opts)
}

func checkArray(owner, name string, typ reflect.Type, conv VarType, length uint16) {
	if length == 0 {
		panic(fmt.Sprintf("saveload: %s.%s: array length must be nonzero", owner, name))
	}
	if typ.Kind() != reflect.Array {
		panic(fmt.Sprintf("saveload: %s.%s: Array descriptor requires an array field, got %s", owner, name, typ))
	}
	// Total storage first, so an oversized declaration is reported as
	// such even when the element width is also wrong.
	if IsNumeric(conv) && MemSize(conv)*uintptr(length) > typ.Size() {
		panic(fmt.Sprintf("saveload: %s.%s: %d elements of %d bytes exceed the field's %d bytes",
			owner, name, length, MemSize(conv), typ.Size()))
	}
	checkConv(owner, name, typ.Elem(), conv)
}

// Str adds a string field: a [N]byte field becomes a fixed buffer of
// on-disk length N, a string field is stored with a terminator.
// StrQuoted is only meaningful for dynamic strings.
func (b *TableBuilder[T]) Str(path string, flags StrFlags, opts ...FieldOption) *TableBuilder[T] {
	typ, offset := b.lookup(path)
	length := checkStr(b.typ.String(), path, typ, flags)
	return b.add(Field{kind: KindStr, conv: byte(flags), length: length, offset: offset, name: path}, opts)
}

func checkStr(owner, name string, typ reflect.Type, flags StrFlags) uint16 {
	switch {
	case typ.Kind() == reflect.String:
		return 0
	case typ.Kind() == reflect.Array && typ.Elem().Kind() == reflect.Uint8:
		if flags&StrQuoted != 0 {
			panic(fmt.Sprintf("saveload: %s.%s: StrQuoted is not valid for fixed buffers", owner, name))
		}
		n := typ.Len()
		if n == 0 || n > int(MaxVersion) {
			panic(fmt.Sprintf("saveload: %s.%s: fixed string buffer length %d out of range", owner, name, n))
		}
		return uint16(n)
	default:
		panic(fmt.Sprintf("saveload: %s.%s: Str descriptor requires a string or [N]byte field, got %s", owner, name, typ))
	}
}

// List adds an ordered reference list field of type []Ref.
func (b *TableBuilder[T]) List(path string, kind RefKind, opts ...FieldOption) *TableBuilder[T] {
	typ, offset := b.lookup(path)
	if typ != refSliceType {
		panic(fmt.Sprintf("saveload: %s.%s: List descriptor requires a []saveload.Ref field, got %s", b.typ, path, typ))
	}
	return b.add(Field{kind: KindList, conv: byte(kind), offset: offset, name: path}, opts)
}

// Null adds dead padding of the given byte length: skipped on read,
// zeroes on write. Null fields are never exported to config.
func (b *TableBuilder[T]) Null(length uint16, opts ...FieldOption) *TableBuilder[T] {
	if length == 0 {
		panic("saveload: Null length must be nonzero")
	}
	return b.add(Field{kind: KindNull, length: length, flags: FlagNotInConfig, name: "<null>"}, opts)
}

// WriteByte adds a variant tag: the constant is emitted on write and
// never visited on read (the chunk driver consumes it before choosing
// a table).
func (b *TableBuilder[T]) WriteByte(value byte, opts ...FieldOption) *TableBuilder[T] {
	return b.add(Field{kind: KindWriteByte, conv: value, name: "<tag>"}, opts)
}

// Include splices another table into the traversal at this point. The
// included table must describe either the same struct or the struct
// embedded at offset zero of T (the shared record prefix pattern).
func (b *TableBuilder[T]) Include(table *Table, opts ...FieldOption) *TableBuilder[T] {
	if table.owner != nil && b.typ != nil && table.owner != b.typ {
		if b.typ.NumField() == 0 || b.typ.Field(0).Type != table.owner || b.typ.Field(0).Offset != 0 {
			panic(fmt.Sprintf("saveload: cannot include table over %s into %s", table.owner, b.typ))
		}
	}
	return b.add(Field{kind: KindInclude, include: table, name: "<include>"}, opts)
}

// globalPointer validates ptr and returns its address and element
// type.
func globalPointer(name string, ptr any) (unsafe.Pointer, reflect.Type) {
	value := reflect.ValueOf(ptr)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		panic(fmt.Sprintf("saveload: global %q must be a non-nil pointer, got %T", name, ptr))
	}
	return unsafe.Pointer(value.Pointer()), value.Type().Elem()
}

// GlobalVar adds a numeric global addressed by pointer. The name is
// used for diagnostics and config export.
func (b *TableBuilder[T]) GlobalVar(name string, ptr any, conv VarType, opts ...FieldOption) *TableBuilder[T] {
	address, typ := globalPointer(name, ptr)
	checkConv("global", name, typ, conv)
	return b.add(Field{kind: KindVar, conv: byte(conv), flags: FlagGlobal, global: address, name: name}, opts)
}

// GlobalArray adds a numeric global array addressed by pointer.
func (b *TableBuilder[T]) GlobalArray(name string, ptr any, conv VarType, length uint16, opts ...FieldOption) *TableBuilder[T] {
	address, typ := globalPointer(name, ptr)
	checkArray("global", name, typ, conv, length)
	return b.add(Field{kind: KindArray, conv: byte(conv), length: length, flags: FlagGlobal, global: address, name: name}, opts)
}

// GlobalStr adds a global string addressed by pointer.
func (b *TableBuilder[T]) GlobalStr(name string, ptr any, flags StrFlags, opts ...FieldOption) *TableBuilder[T] {
	address, typ := globalPointer(name, ptr)
	length := checkStr("global", name, typ, flags)
	return b.add(Field{kind: KindStr, conv: byte(flags), length: length, flags: FlagGlobal, global: address, name: name}, opts)
}

// GlobalList adds a global reference list addressed by pointer.
// Global lists are the staging slots legacy load paths swap into
// their final keyed containers.
func (b *TableBuilder[T]) GlobalList(name string, ptr *[]Ref, kind RefKind, opts ...FieldOption) *TableBuilder[T] {
	if ptr == nil {
		panic(fmt.Sprintf("saveload: global list %q is nil", name))
	}
	return b.add(Field{kind: KindList, conv: byte(kind), flags: FlagGlobal, global: unsafe.Pointer(ptr), name: name}, opts)
}

// Build finalizes the table. The owner type is recorded only when
// some descriptor actually dereferences the walked object, so tables
// of globals (and pure padding tables) can be walked with a nil
// object.
func (b *TableBuilder[T]) Build() *Table {
	var owner reflect.Type
	if b.typ != nil {
		for i := range b.fields {
			field := &b.fields[i]
			switch field.kind {
			case KindNull, KindWriteByte:
				// No storage behind these.
			case KindInclude:
				if field.include.owner != nil {
					owner = b.typ
				}
			default:
				if field.flags&FlagGlobal == 0 {
					owner = b.typ
				}
			}
		}
	}
	return &Table{fields: b.fields, owner: owner}
}
