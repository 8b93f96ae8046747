// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package savefile

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/meridian-sim/meridian/lib/container"
	"github.com/meridian-sim/meridian/lib/pool"
	"github.com/meridian-sim/meridian/lib/saveload"
)

const refCreature saveload.RefKind = 1

type creature struct {
	Energy uint16
	Mate   saveload.Ref
}

var creatureTable = saveload.NewTable[creature]().
	Var("Energy", saveload.Uint16).
	Ref("Mate", refCreature).
	Build()

var creatureTag = saveload.MakeTag("CRTR")

// creatureWorld is the minimal consumer of the save pipeline: one
// pool, one array chunk.
type creatureWorld struct {
	creatures *pool.Pool[creature]
}

func newCreatureWorld() *creatureWorld {
	return &creatureWorld{creatures: pool.New[creature]("creature", 1024)}
}

func (w *creatureWorld) registry() *saveload.Registry {
	return saveload.NewRegistry(saveload.Handler{
		Tag:   creatureTag,
		Array: true,
		Save: func(d *saveload.Dumper) error {
			for index, obj := range w.creatures.All() {
				if err := d.WriteElement(int(index), obj, creatureTable); err != nil {
					return err
				}
			}
			return nil
		},
		Load: func(r *saveload.Reader) error {
			for {
				index, err := r.IterateChunk()
				if err != nil {
					return err
				}
				if index < 0 {
					return nil
				}
				obj, err := w.creatures.Create(uint32(index))
				if err != nil {
					return err
				}
				if err := r.ReadObject(obj, creatureTable); err != nil {
					return err
				}
			}
		},
		Fixup: func(rv *saveload.Resolver, stamp saveload.Stamp) error {
			for _, obj := range w.creatures.All() {
				if err := rv.ResolveObject(obj, creatureTable, stamp); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

func (w *creatureWorld) resolver() *saveload.Resolver {
	rv := saveload.NewResolver()
	rv.Register(refCreature, "creature", w.creatures)
	return rv
}

func testMeta() container.Metadata {
	return container.Metadata{
		Name:    "pond",
		SimDate: 100,
		Created: time.Unix(1787654321, 0).UTC(),
	}
}

func TestSaveLoadCycle(t *testing.T) {
	src := newCreatureWorld()
	a, _ := src.creatures.Create(0)
	b, _ := src.creatures.Create(5)
	a.Energy = 10
	a.Mate = saveload.MakeRef(5)
	b.Energy = 20
	b.Mate = saveload.MakeRef(0)

	var buffer bytes.Buffer
	if err := Save(&buffer, testMeta(), src.registry(), Options{}); err != nil {
		t.Fatal(err)
	}

	dst := newCreatureWorld()
	meta, stamp, err := Load(bytes.NewReader(buffer.Bytes()), dst.registry(), dst.resolver(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !stamp.IsCurrent() {
		t.Errorf("stamp = %v", stamp)
	}
	if meta.Name != "pond" || meta.SimDate != 100 {
		t.Errorf("metadata = %+v", meta)
	}

	if dst.creatures.Len() != 2 {
		t.Fatalf("loaded %d creatures, want 2", dst.creatures.Len())
	}
	got, ok := dst.creatures.Get(5)
	if !ok || got.Energy != 20 || got.Mate != saveload.MakeRef(0) {
		t.Fatalf("creature 5 = %+v", got)
	}
	got, ok = dst.creatures.Get(0)
	if !ok || got.Mate != saveload.MakeRef(5) {
		t.Fatalf("creature 0 = %+v", got)
	}
}

func TestLoadReportsDanglingReference(t *testing.T) {
	src := newCreatureWorld()
	a, _ := src.creatures.Create(0)
	a.Mate = saveload.MakeRef(9) // slot 9 never exists

	var buffer bytes.Buffer
	if err := Save(&buffer, testMeta(), src.registry(), Options{}); err != nil {
		t.Fatal(err)
	}

	dst := newCreatureWorld()
	_, _, err := Load(bytes.NewReader(buffer.Bytes()), dst.registry(), dst.resolver(), Options{})
	var corrupt *saveload.CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Load = %v, want CorruptError", err)
	}
}

func TestLoadRejectsUnknownChunk(t *testing.T) {
	// Hand-build a container carrying a tag no handler claims.
	var buffer bytes.Buffer
	cw, err := container.NewWriter(&buffer, testMeta())
	if err != nil {
		t.Fatal(err)
	}
	if err := cw.WriteChunk(saveload.MakeTag("ZZZZ"), []byte{0}); err != nil {
		t.Fatal(err)
	}
	if err := cw.Close(); err != nil {
		t.Fatal(err)
	}

	dst := newCreatureWorld()
	_, _, err = Load(bytes.NewReader(buffer.Bytes()), dst.registry(), dst.resolver(), Options{})
	var corrupt *saveload.CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Load = %v, want CorruptError", err)
	}
	if corrupt.Chunk != saveload.MakeTag("ZZZZ") {
		t.Errorf("error names chunk %s", corrupt.Chunk)
	}
}

func TestLoadDetectsUnderconsumedChunk(t *testing.T) {
	// A handler that returns early leaves payload bytes unread; the
	// orchestrator must flag that instead of silently dropping data.
	var buffer bytes.Buffer
	cw, err := container.NewWriter(&buffer, testMeta())
	if err != nil {
		t.Fatal(err)
	}
	if err := cw.WriteChunk(creatureTag, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := cw.Close(); err != nil {
		t.Fatal(err)
	}

	registry := saveload.NewRegistry(saveload.Handler{
		Tag:  creatureTag,
		Load: func(r *saveload.Reader) error { return nil },
	})
	_, _, err = Load(bytes.NewReader(buffer.Bytes()), registry, saveload.NewResolver(), Options{})
	var corrupt *saveload.CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Load = %v, want CorruptError", err)
	}
}

func TestSaveSkipsLegacyOnlyChunks(t *testing.T) {
	loaded := false
	registry := saveload.NewRegistry(saveload.Handler{
		Tag:  saveload.MakeTag("OLDC"),
		Load: func(r *saveload.Reader) error { loaded = true; return nil },
		// No Save: the chunk exists only in old files.
	})

	var buffer bytes.Buffer
	if err := Save(&buffer, testMeta(), registry, Options{}); err != nil {
		t.Fatal(err)
	}
	_, _, err := Load(bytes.NewReader(buffer.Bytes()), registry, saveload.NewResolver(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if loaded {
		t.Error("legacy-only chunk appeared in a fresh save")
	}
}
