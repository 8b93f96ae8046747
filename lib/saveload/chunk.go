// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package saveload

import (
	"encoding/hex"
	"fmt"
)

// Tag is the 4-byte identifier naming one logical array of same-kind
// objects within a save. Tags are protocol constants.
type Tag [4]byte

// MakeTag builds a tag from its conventional 4-character name.
func MakeTag(name string) Tag {
	if len(name) != 4 {
		panic(fmt.Sprintf("saveload: chunk tag %q must be 4 characters", name))
	}
	var tag Tag
	copy(tag[:], name)
	return tag
}

// String returns the tag name, or a hex form if it is not printable.
func (t Tag) String() string {
	for _, b := range t {
		if b < 0x20 || b > 0x7E {
			return "0x" + hex.EncodeToString(t[:])
		}
	}
	return string(t[:])
}

// Handler describes how one chunk kind is saved, loaded and fixed up.
// Consumers register a handler per chunk tag; the orchestrator in
// lib/savefile drives them.
type Handler struct {
	// Tag names the chunk.
	Tag Tag

	// Save writes the chunk's objects into the dumper. Nil for
	// chunks that exist only in old saves and are never written.
	Save func(*Dumper) error

	// Load reads the chunk's objects from the reader. For Array
	// chunks the reader's IterateChunk yields each stored index.
	Load func(*Reader) error

	// Special, when set, replaces Load for chunks that parse their
	// own framing instead of the standard element layout.
	Special func(*Reader) error

	// Fixup is the phase-2 reference-resolution pass for this
	// chunk's objects, run after every chunk of the save has loaded.
	// Fixups run in handler registration order, so a later handler
	// may assume earlier ones are already resolvable. Must be safe
	// to invoke more than once.
	Fixup func(*Resolver, Stamp) error

	// Array marks the chunk as an indexed element array (the common
	// case). Non-array chunks are a single raw record.
	Array bool
}

// Registry is the ordered set of chunk handlers making up a complete
// save. Registration order is load-fixup order.
type Registry struct {
	handlers []Handler
	byTag    map[Tag]int
}

// NewRegistry builds a registry, validating that tags are unique and
// every handler can load.
func NewRegistry(handlers ...Handler) *Registry {
	registry := &Registry{byTag: make(map[Tag]int, len(handlers))}
	for _, handler := range handlers {
		if (handler.Load == nil) == (handler.Special == nil) {
			panic(fmt.Sprintf("saveload: chunk %s must have exactly one of Load and Special", handler.Tag))
		}
		if _, dup := registry.byTag[handler.Tag]; dup {
			panic(fmt.Sprintf("saveload: duplicate chunk tag %s", handler.Tag))
		}
		registry.byTag[handler.Tag] = len(registry.handlers)
		registry.handlers = append(registry.handlers, handler)
	}
	return registry
}

// Handlers returns the handlers in registration order.
func (r *Registry) Handlers() []Handler { return r.handlers }

// Lookup returns the handler for a tag, or nil if the tag is unknown.
func (r *Registry) Lookup(tag Tag) *Handler {
	index, ok := r.byTag[tag]
	if !ok {
		return nil
	}
	return &r.handlers[index]
}
