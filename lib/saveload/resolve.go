// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package saveload

import (
	"fmt"
	"unsafe"
)

// Ref is a typed handle naming an object in a storage pool. It is the
// in-memory and on-disk representation of a cross-object link: a slot
// index biased by one, zero meaning "no object". Because both sides
// use the same encoding, phase-2 resolution only validates and
// normalizes; it never rewrites live ids, so running it twice is
// harmless.
type Ref uint32

// NilRef is the absent reference.
const NilRef Ref = 0

// legacyNilRef is the 16-bit sentinel old saves used for "none".
const legacyNilRef Ref = 0xFFFF

// MakeRef returns the reference naming a pool slot.
func MakeRef(index uint32) Ref {
	if index == ^uint32(0) {
		panic("saveload: slot index out of range")
	}
	return Ref(index + 1)
}

// IsNil reports whether the reference names no object.
func (r Ref) IsNil() bool { return r == NilRef }

// Index returns the pool slot the reference names, and whether it
// names one at all.
func (r Ref) Index() (uint32, bool) {
	if r == NilRef {
		return 0, false
	}
	return uint32(r) - 1, true
}

func (r Ref) String() string {
	index, ok := r.Index()
	if !ok {
		return "nil"
	}
	return fmt.Sprintf("#%d", index)
}

// RefKind names the pool a reference field points into. Consumers
// define their own kinds and register a pool per kind with the
// Resolver.
type RefKind byte

// SlotSet is the view of a storage pool the resolver needs: which
// slots are occupied after phase 1 recreated every object.
type SlotSet interface {
	Contains(index uint32) bool
}

// Resolver validates reference ids against the recreated pools during
// phase 2 of a load. Chunk fixup code calls ResolveObject on every
// object holding Ref or List fields.
type Resolver struct {
	pools map[RefKind]SlotSet
	names map[RefKind]string
}

// NewResolver returns a resolver with no pools registered.
func NewResolver() *Resolver {
	return &Resolver{
		pools: make(map[RefKind]SlotSet),
		names: make(map[RefKind]string),
	}
}

// Register attaches the pool backing one reference kind. name is
// diagnostic only.
func (rv *Resolver) Register(kind RefKind, name string, slots SlotSet) {
	if _, dup := rv.pools[kind]; dup {
		panic(fmt.Sprintf("saveload: reference kind %d registered twice", kind))
	}
	rv.pools[kind] = slots
	rv.names[kind] = name
}

// Resolve validates a single raw reference read from a save with the
// given stamp and returns its normalized form. Legacy saves encoded
// "none" as 0xFFFF; that folds to NilRef. A reference naming an
// unoccupied slot is savegame corruption.
func (rv *Resolver) Resolve(kind RefKind, raw Ref, stamp Stamp) (Ref, error) {
	if raw == NilRef {
		return NilRef, nil
	}
	if stamp.IsLegacy() && raw == legacyNilRef {
		return NilRef, nil
	}
	slots, ok := rv.pools[kind]
	if !ok {
		return NilRef, fmt.Errorf("saveload: no pool registered for reference kind %d", kind)
	}
	index := uint32(raw) - 1
	if !slots.Contains(index) {
		return NilRef, fmt.Errorf("reference to missing %s %d", rv.names[kind], index)
	}
	return raw, nil
}

// ResolveObject walks the reference-bearing fields of an object that
// was read under the given stamp, validating and normalizing each id
// in place. Fields not valid for the stamp were never read and are
// skipped. Idempotent: resolving an already-resolved object changes
// nothing.
func (rv *Resolver) ResolveObject(obj any, table *Table, stamp Stamp) error {
	base := table.bind(obj)
	return rv.resolveFields(base, table, stamp)
}

func (rv *Resolver) resolveFields(base unsafe.Pointer, table *Table, stamp Stamp) error {
	for i := range table.fields {
		field := &table.fields[i]
		if !field.IsValidFor(stamp) {
			continue
		}
		switch field.kind {
		case KindRef:
			ptr := (*Ref)(field.address(base))
			resolved, err := rv.Resolve(RefKind(field.conv), *ptr, stamp)
			if err != nil {
				return corruptf(Tag{}, field.name, "%v", err)
			}
			*ptr = resolved
		case KindList:
			refs := *(*[]Ref)(field.address(base))
			for j, raw := range refs {
				resolved, err := rv.Resolve(RefKind(field.conv), raw, stamp)
				if err != nil {
					return corruptf(Tag{}, field.name, "entry %d: %v", j, err)
				}
				refs[j] = resolved
			}
		case KindInclude:
			if err := rv.resolveFields(base, field.include, stamp); err != nil {
				return err
			}
		}
	}
	return nil
}
