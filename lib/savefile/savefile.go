// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package savefile orchestrates complete save and load cycles: it
// walks a chunk handler registry, moves each chunk's payload through
// the physical container, and runs the two-phase load protocol —
// phase 1 recreates every object from every chunk, phase 2 resolves
// cross-object references once all pools are populated.
package savefile

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/meridian-sim/meridian/lib/container"
	"github.com/meridian-sim/meridian/lib/saveload"
)

// Options carries the optional collaborators of a save or load cycle.
// The zero value is usable.
type Options struct {
	// ResolveStringID translates legacy string table ids for MemName
	// fields on load. Only needed for saves old enough to carry them.
	ResolveStringID func(id uint16) (string, error)

	// StoreStringID interns names for MemName fields on save.
	StoreStringID func(name string) (uint16, error)

	// Logger receives per-chunk debug records. Nil means the default
	// logger.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Save writes a complete savegame: every handler with a Save callback
// contributes one chunk, in registration order. Handlers without one
// (legacy-only chunks) are skipped.
func Save(w io.Writer, meta container.Metadata, registry *saveload.Registry, opts Options) error {
	log := opts.logger()
	cw, err := container.NewWriter(w, meta)
	if err != nil {
		return err
	}
	for _, handler := range registry.Handlers() {
		if handler.Save == nil {
			continue
		}
		dumper := saveload.NewDumper(handler.Tag)
		dumper.StoreStringID = opts.StoreStringID
		if err := handler.Save(dumper); err != nil {
			return fmt.Errorf("saving chunk %s: %w", handler.Tag, err)
		}
		if handler.Array {
			dumper.EndChunk()
		}
		if err := cw.WriteChunk(handler.Tag, dumper.Bytes()); err != nil {
			return err
		}
		log.Debug("chunk saved", "tag", handler.Tag.String(), "bytes", dumper.Size())
	}
	return cw.Close()
}

// Load reads a complete savegame into the registry's handlers. Phase
// 1 feeds every chunk payload to its handler; a chunk with no handler
// is corruption, as is a payload the handler does not fully consume.
// Phase 2 runs every Fixup in registration order against the
// resolver, so a later handler may assume earlier ones resolve.
//
// On error the destination state is unspecified; the caller loads
// into a fresh world and discards it on failure.
func Load(r io.Reader, registry *saveload.Registry, resolver *saveload.Resolver, opts Options) (container.Metadata, saveload.Stamp, error) {
	log := opts.logger()
	cr, err := container.NewReader(r)
	if err != nil {
		return container.Metadata{}, saveload.Stamp{}, err
	}
	stamp := cr.Stamp()
	log.Debug("loading save", "stamp", stamp.String(), "name", cr.Metadata().Name)

	for {
		chunk, err := cr.NextChunk()
		if err != nil {
			return container.Metadata{}, saveload.Stamp{}, err
		}
		if chunk == nil {
			break
		}
		handler := registry.Lookup(chunk.Tag)
		if handler == nil {
			return container.Metadata{}, saveload.Stamp{}, &saveload.CorruptError{
				Chunk: chunk.Tag,
				Err:   fmt.Errorf("unknown chunk tag"),
			}
		}

		reader := saveload.NewReader(chunk.Payload, stamp, chunk.Tag, handler.Array)
		reader.ResolveStringID = opts.ResolveStringID
		load := handler.Load
		if handler.Special != nil {
			load = handler.Special
		}
		if err := load(reader); err != nil {
			return container.Metadata{}, saveload.Stamp{}, fmt.Errorf("loading chunk %s: %w", chunk.Tag, err)
		}
		if err := reader.Finish(); err != nil {
			return container.Metadata{}, saveload.Stamp{}, err
		}
		log.Debug("chunk loaded", "tag", chunk.Tag.String(), "bytes", len(chunk.Payload))
	}

	for _, handler := range registry.Handlers() {
		if handler.Fixup == nil {
			continue
		}
		if err := handler.Fixup(resolver, stamp); err != nil {
			return container.Metadata{}, saveload.Stamp{}, fmt.Errorf("resolving chunk %s references: %w", handler.Tag, err)
		}
	}

	return cr.Metadata(), stamp, nil
}
