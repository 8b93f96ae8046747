// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package world

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/meridian-sim/meridian/lib/container"
	"github.com/meridian-sim/meridian/lib/saveload"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetadata() container.Metadata {
	return container.Metadata{
		Name:    "roundtrip",
		SimDate: 5000,
		Created: time.Unix(1700000000, 0).UTC(),
	}
}

func mustCreate[T any](t *testing.T, create func(uint32) (*T, error), index uint32) *T {
	t.Helper()
	obj, err := create(index)
	if err != nil {
		t.Fatal(err)
	}
	return obj
}

// buildWorld populates a universe exercising every entity kind:
// a depot with waiting cargo, a halt, a platform chain, a berth,
// a vehicle carrying a packet.
func buildWorld(t *testing.T) *Universe {
	t.Helper()
	u := NewUniverse()

	settlement := mustCreate(t, u.Settlements.Create, 0)
	settlement.Tile = 0x00010203
	settlement.Name = "Greenvale"
	settlement.Population = 1200
	settlement.Production = [NumCargo]uint16{5, 0, 2, 0}

	first := mustCreate(t, u.Packets.Create, 0)
	first.Count = 40
	first.Days = 3
	first.Origin = saveload.MakeRef(0)
	first.Value = 1750

	second := mustCreate(t, u.Packets.Create, 1)
	second.Count = 8
	second.Days = 11
	second.Origin = saveload.MakeRef(0)
	second.Value = -20

	depotSite := mustCreate(t, u.Sites.Create, 0)
	depotSite.Depot = &Depot{
		Base: SiteBase{
			Tile:       0x00020004,
			Name:       "Greenvale Central",
			Owner:      2,
			BuildDate:  7305,
			Settlement: saveload.MakeRef(0),
		},
		TruckBays: 3,
	}
	depotSite.Depot.Goods[1] = GoodsEntry{
		Status:  1,
		Rating:  190,
		Days:    4,
		Source:  saveload.MakeRef(0),
		Packets: []saveload.Ref{saveload.MakeRef(0)},
	}

	haltSite := mustCreate(t, u.Sites.Create, 3)
	haltSite.Halt = &Halt{
		Base: SiteBase{
			Tile:       0x00050006,
			Name:       "North Junction",
			Owner:      2,
			BuildDate:  7400,
			Settlement: saveload.NilRef,
		},
		Kind: 1,
	}

	for i, next := range []saveload.Ref{saveload.MakeRef(1), saveload.NilRef} {
		platform := mustCreate(t, u.Platforms.Create, uint32(i))
		platform.Tile = 0x00020004 + uint32(i)
		platform.Status = 2
		platform.Site = saveload.MakeRef(0)
		platform.Next = next
	}

	berth := mustCreate(t, u.Berths.Create, 0)
	berth.Tile = 0x00020008
	berth.Capacity = 6
	berth.Site = saveload.MakeRef(0)

	vehicle := mustCreate(t, u.Vehicles.Create, 4)
	vehicle.Tile = 0x00030003
	vehicle.Cargo = 1
	vehicle.Count = 8
	vehicle.Next = saveload.NilRef
	vehicle.Site = saveload.MakeRef(3)
	vehicle.Packets = []saveload.Ref{saveload.MakeRef(1)}

	return u
}

func saveWorld(t *testing.T, u *Universe) []byte {
	t.Helper()
	var buffer bytes.Buffer
	if err := u.Save(&buffer, testMetadata(), Options{Logger: testLogger()}); err != nil {
		t.Fatal(err)
	}
	return buffer.Bytes()
}

func TestSaveLoadRoundTrip(t *testing.T) {
	u := buildWorld(t)
	data := saveWorld(t, u)

	result, err := Load(bytes.NewReader(data), Options{Logger: testLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Stamp.IsCurrent() {
		t.Fatalf("stamp = %s", result.Stamp)
	}
	if result.Metadata.Name != "roundtrip" || result.Metadata.SimDate != 5000 {
		t.Fatalf("metadata = %+v", result.Metadata)
	}

	loaded := result.Universe
	if loaded.Sites.Len() != 2 || loaded.Platforms.Len() != 2 ||
		loaded.Berths.Len() != 1 || loaded.Vehicles.Len() != 1 ||
		loaded.Packets.Len() != 2 || loaded.Settlements.Len() != 1 {
		t.Fatalf("pool sizes: sites %d platforms %d berths %d vehicles %d packets %d settlements %d",
			loaded.Sites.Len(), loaded.Platforms.Len(), loaded.Berths.Len(),
			loaded.Vehicles.Len(), loaded.Packets.Len(), loaded.Settlements.Len())
	}

	site, ok := loaded.Sites.Get(0)
	if !ok || site.Depot == nil {
		t.Fatal("depot site missing")
	}
	depot := site.Depot
	want := u.mustGetDepot(t, 0)
	if depot.Base != want.Base {
		t.Fatalf("depot base = %+v, want %+v", depot.Base, want.Base)
	}
	if depot.TruckBays != 3 {
		t.Fatalf("truck bays = %d", depot.TruckBays)
	}
	if !reflect.DeepEqual(depot.Goods[1].Packets, []saveload.Ref{saveload.MakeRef(0)}) {
		t.Fatalf("goods packets = %v", depot.Goods[1].Packets)
	}
	if depot.Goods[1].Rating != 190 || depot.Goods[1].Source != saveload.MakeRef(0) {
		t.Fatalf("goods entry = %+v", depot.Goods[1])
	}
	// Both platforms link the depot; the count is derived on load.
	if depot.Platforms != 2 {
		t.Fatalf("derived platform count = %d, want 2", depot.Platforms)
	}

	halt, ok := loaded.Sites.Get(3)
	if !ok || halt.Halt == nil {
		t.Fatal("halt site missing")
	}
	if halt.Halt.Base.Name != "North Junction" || halt.Halt.Kind != 1 {
		t.Fatalf("halt = %+v", halt.Halt)
	}

	vehicle, ok := loaded.Vehicles.Get(4)
	if !ok {
		t.Fatal("vehicle missing")
	}
	if vehicle.Site != saveload.MakeRef(3) ||
		!reflect.DeepEqual(vehicle.Packets, []saveload.Ref{saveload.MakeRef(1)}) {
		t.Fatalf("vehicle = %+v", vehicle)
	}

	settlement, ok := loaded.Settlements.Get(0)
	if !ok || settlement.Name != "Greenvale" || settlement.Population != 1200 {
		t.Fatalf("settlement = %+v", settlement)
	}
	if settlement.Production != ([NumCargo]uint16{5, 0, 2, 0}) {
		t.Fatalf("production = %v", settlement.Production)
	}
}

func (u *Universe) mustGetDepot(t *testing.T, index uint32) *Depot {
	t.Helper()
	site, ok := u.Sites.Get(index)
	if !ok || site.Depot == nil {
		t.Fatalf("no depot at site %d", index)
	}
	return site.Depot
}

func TestSaveDeterministic(t *testing.T) {
	u := buildWorld(t)
	first := saveWorld(t, u)
	second := saveWorld(t, u)
	if !bytes.Equal(first, second) {
		t.Fatal("two saves of the same world differ")
	}
}

func TestLoadDanglingReference(t *testing.T) {
	u := buildWorld(t)
	platform, _ := u.Platforms.Get(0)
	platform.Site = saveload.MakeRef(99)
	data := saveWorld(t, u)

	_, err := Load(bytes.NewReader(data), Options{Logger: testLogger()})
	if err == nil {
		t.Fatal("dangling site reference loaded")
	}
	if !strings.Contains(err.Error(), "missing site 99") {
		t.Fatalf("error = %v", err)
	}
}

func TestLoadDanglingPacketInList(t *testing.T) {
	u := buildWorld(t)
	depot := u.mustGetDepot(t, 0)
	depot.Goods[1].Packets = append(depot.Goods[1].Packets, saveload.MakeRef(77))
	data := saveWorld(t, u)

	_, err := Load(bytes.NewReader(data), Options{Logger: testLogger()})
	if err == nil {
		t.Fatal("dangling packet reference loaded")
	}
	if !strings.Contains(err.Error(), "missing packet 77") {
		t.Fatalf("error = %v", err)
	}
}

func TestLoadUnknownFacilityTag(t *testing.T) {
	var buffer bytes.Buffer
	cw, err := container.NewWriter(&buffer, testMetadata())
	if err != nil {
		t.Fatal(err)
	}
	// One element whose facility tag matches no variant.
	payload := binary.AppendUvarint(nil, 1) // index 0
	payload = binary.AppendUvarint(payload, 1)
	payload = append(payload, 0x07)
	payload = binary.AppendUvarint(payload, 0)
	if err := cw.WriteChunk(saveload.MakeTag("DPTN"), payload); err != nil {
		t.Fatal(err)
	}
	if err := cw.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = Load(bytes.NewReader(buffer.Bytes()), Options{Logger: testLogger()})
	if err == nil {
		t.Fatal("unknown facility tag loaded")
	}
	if !strings.Contains(err.Error(), "unknown facility tag") {
		t.Fatalf("error = %v", err)
	}
}

func TestLoadDuplicateSlot(t *testing.T) {
	var buffer bytes.Buffer
	cw, err := container.NewWriter(&buffer, testMetadata())
	if err != nil {
		t.Fatal(err)
	}
	// The same settlement index stored twice.
	element := []byte{
		0x00, 0x01, 0x02, 0x03, // tile
		'A', 0x00, // name
		0x00, 0x00, 0x00, 0x64, // population
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // production
	}
	var payload []byte
	for range 2 {
		payload = binary.AppendUvarint(payload, 1)
		payload = binary.AppendUvarint(payload, uint64(len(element)))
		payload = append(payload, element...)
	}
	payload = binary.AppendUvarint(payload, 0)
	if err := cw.WriteChunk(saveload.MakeTag("STLM"), payload); err != nil {
		t.Fatal(err)
	}
	if err := cw.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = Load(bytes.NewReader(buffer.Bytes()), Options{Logger: testLogger()})
	if err == nil || !strings.Contains(err.Error(), "already occupied") {
		t.Fatalf("error = %v", err)
	}
}

func TestLoadFailureReturnsNothing(t *testing.T) {
	u := buildWorld(t)
	platform, _ := u.Platforms.Get(0)
	platform.Site = saveload.MakeRef(99)
	data := saveWorld(t, u)

	result, err := Load(bytes.NewReader(data), Options{Logger: testLogger()})
	if err == nil {
		t.Fatal("want error")
	}
	if result != nil {
		t.Fatal("failed load returned a universe")
	}
}
