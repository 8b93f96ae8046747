// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package saveload

import (
	"bytes"
	"fmt"
	"unsafe"
)

// ConfigFields returns the descriptors the settings layer may expose:
// global scalar fields not flagged NotInConfig whose current-version
// range covers this build. Padding, arrays and reference fields never
// appear in a settings file.
func (t *Table) ConfigFields() []*Field {
	var fields []*Field
	for i := range t.fields {
		field := &t.fields[i]
		if field.flags&FlagGlobal == 0 || field.flags&FlagNotInConfig != 0 {
			continue
		}
		if !field.IsValidForCurrentVersion() {
			continue
		}
		switch field.kind {
		case KindVar, KindStr:
			fields = append(fields, field)
		}
	}
	return fields
}

// ConfigValue reads the field's current value as a plain Go value:
// bool, int64, or string. Only valid for fields from ConfigFields.
func (f *Field) ConfigValue() any {
	ptr := f.address(nil)
	switch f.kind {
	case KindVar:
		conv := VarType(f.conv)
		if MemKind(conv) == MemName {
			return *(*string)(ptr)
		}
		if MemKind(conv) == MemBool {
			return *(*bool)(ptr)
		}
		return loadMemory(ptr, conv)
	case KindStr:
		if f.length > 0 {
			buffer := unsafe.Slice((*byte)(ptr), int(f.length))
			if end := bytes.IndexByte(buffer, 0); end >= 0 {
				buffer = buffer[:end]
			}
			return string(buffer)
		}
		return *(*string)(ptr)
	}
	panic(fmt.Sprintf("saveload: ConfigValue of %q (kind %d)", f.name, f.kind))
}

// SetConfigValue stores a plain Go value into the field, converting
// between integer widths. The value's shape must match the field:
// bool for booleans, an integer for numerics, string for strings.
func (f *Field) SetConfigValue(value any) error {
	ptr := f.address(nil)
	switch f.kind {
	case KindVar:
		conv := VarType(f.conv)
		if MemKind(conv) == MemName {
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("setting %q: want a string, got %T", f.name, value)
			}
			*(*string)(ptr) = s
			return nil
		}
		if MemKind(conv) == MemBool {
			b, ok := value.(bool)
			if !ok {
				return fmt.Errorf("setting %q: want a bool, got %T", f.name, value)
			}
			*(*bool)(ptr) = b
			return nil
		}
		number, err := toInt64(value)
		if err != nil {
			return fmt.Errorf("setting %q: %w", f.name, err)
		}
		storeMemory(ptr, conv, number)
		return nil
	case KindStr:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("setting %q: want a string, got %T", f.name, value)
		}
		if f.length > 0 {
			if len(s) > int(f.length) {
				return fmt.Errorf("setting %q: %d bytes exceed the %d-byte buffer", f.name, len(s), f.length)
			}
			buffer := unsafe.Slice((*byte)(ptr), int(f.length))
			clear(buffer)
			copy(buffer, s)
			return nil
		}
		*(*string)(ptr) = s
		return nil
	}
	return fmt.Errorf("setting %q: field kind %d is not configurable", f.name, f.kind)
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		// YAML hands over large u64 values as floats only when they
		// do not fit an int; everything integral is fine.
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("want an integer, got %v", v)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("want an integer, got %T", value)
	}
}
