// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package world

import (
	"io"
	"log/slog"

	"github.com/meridian-sim/meridian/lib/container"
	"github.com/meridian-sim/meridian/lib/savefile"
	"github.com/meridian-sim/meridian/lib/saveload"
)

// Options carries the optional collaborators of a world save or load.
// The zero value is usable.
type Options struct {
	// LegacyNames translates the string-table ids very old saves used
	// for entity names. Loads of such saves fail without it.
	LegacyNames func(id uint16) (string, error)

	// Logger receives per-chunk debug records; nil means the default
	// logger.
	Logger *slog.Logger
}

// Save writes the universe as a complete savegame.
func (u *Universe) Save(w io.Writer, meta container.Metadata, opts Options) error {
	s := newSession(u)
	return savefile.Save(w, meta, s.registry(), savefile.Options{Logger: opts.Logger})
}

// LoadResult is a successfully loaded world and the save it came from.
type LoadResult struct {
	Universe *Universe
	Metadata container.Metadata
	Stamp    saveload.Stamp
}

// Load reads a complete savegame into a fresh universe. Nothing of a
// failed load escapes: the partially built universe is discarded with
// the error.
func Load(r io.Reader, opts Options) (*LoadResult, error) {
	u := NewUniverse()
	s := newSession(u)
	meta, stamp, err := savefile.Load(r, s.registry(), u.resolver(), savefile.Options{
		ResolveStringID: opts.LegacyNames,
		Logger:          opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	u.afterLoad()
	return &LoadResult{Universe: u, Metadata: meta, Stamp: stamp}, nil
}
