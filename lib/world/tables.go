// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package world

import (
	"github.com/meridian-sim/meridian/lib/saveload"
)

// session binds the descriptor tables to one save or load cycle. The
// legacy layouts stage some values through globals (a flat packet list
// the load path swaps into its final owner), so tables that address
// them must be rebuilt per cycle rather than shared process-wide.
type session struct {
	u *Universe

	// Legacy staging slots. Old formats stored each packet list as a
	// chunk-global that the loader swapped into the entry just read.
	stagedGoodsPackets   []saveload.Ref
	stagedVehiclePackets []saveload.Ref

	baseTable     *saveload.Table
	goodsTable    *saveload.Table
	depotTable    *saveload.Table
	haltTable     *saveload.Table
	oldDepotTable *saveload.Table

	platformTable   *saveload.Table
	berthTable      *saveload.Table
	vehicleTable    *saveload.Table
	packetTable     *saveload.Table
	settlementTable *saveload.Table
}

func newSession(u *Universe) *session {
	s := &session{u: u}

	// Tiles widened from 16 to 32 bits at legacy 6, build dates at
	// legacy 31, names moved from string-table ids to inline strings
	// at legacy 84. The paired descriptors cover both layouts; at most
	// one is valid for any given stamp.
	s.baseTable = saveload.NewTable[SiteBase]().
		Var("Tile", saveload.FileU16|saveload.MemU32, saveload.NoCurrent(), saveload.Legacy(0, 5)).
		Var("Tile", saveload.Uint32, saveload.LegacyFrom(6)).
		Var("Name", saveload.Name, saveload.NoCurrent(), saveload.Legacy(0, 83)).
		Str("Name", 0, saveload.LegacyFrom(84)).
		Var("Owner", saveload.Uint8).
		Var("BuildDate", saveload.FileU16|saveload.MemU32, saveload.NoCurrent(), saveload.Legacy(0, 30)).
		Var("BuildDate", saveload.Uint32, saveload.LegacyFrom(31)).
		Ref("Settlement", RefSettlement).
		Build()

	// Per-packet cargo tracking arrived at legacy 68. Before that a
	// goods entry carried a bare waiting count, now dead padding; from
	// 68 on, legacy saves stage the packet list through a global.
	s.goodsTable = saveload.NewTable[GoodsEntry]().
		Var("Status", saveload.Uint8).
		Var("Rating", saveload.Uint8).
		Var("Days", saveload.Uint8).
		Ref("Source", RefSettlement).
		Null(2, saveload.NoCurrent(), saveload.Legacy(0, 67)).
		GlobalList("goods.packets", &s.stagedGoodsPackets, RefPacket,
			saveload.NoCurrent(), saveload.LegacyFrom(68)).
		List("Packets", RefPacket, saveload.NoLegacy()).
		Build()

	// The two site variants share the base prefix; the leading tag
	// byte tells the loader which table the rest of the element
	// follows.
	s.depotTable = saveload.NewTable[Depot]().
		WriteByte(FacilityDepot).
		Include(s.baseTable).
		Var("TruckBays", saveload.Uint8).
		Build()

	s.haltTable = saveload.NewTable[Halt]().
		WriteByte(FacilityHalt).
		Include(s.baseTable).
		Var("Kind", saveload.Uint8).
		Build()

	// Layout of the retired depot chunk: no tag byte, a different
	// field order, and four bytes of a dropped tile pair. Only ever
	// read.
	s.oldDepotTable = saveload.NewTable[Depot]().
		Var("Base.Tile", saveload.FileU16|saveload.MemU32, saveload.NoCurrent(), saveload.Legacy(0, 5)).
		Var("Base.Tile", saveload.Uint32, saveload.NoCurrent(), saveload.LegacyFrom(6)).
		Null(4, saveload.NoCurrent()).
		Var("Base.Name", saveload.Name, saveload.NoCurrent(), saveload.Legacy(0, 83)).
		Str("Base.Name", 0, saveload.NoCurrent(), saveload.LegacyFrom(84)).
		Var("Base.BuildDate", saveload.FileU16|saveload.MemU32, saveload.NoCurrent(), saveload.Legacy(0, 30)).
		Var("Base.BuildDate", saveload.Uint32, saveload.NoCurrent(), saveload.LegacyFrom(31)).
		Var("Base.Owner", saveload.Uint8, saveload.NoCurrent()).
		Ref("Base.Settlement", RefSettlement, saveload.NoCurrent()).
		Var("TruckBays", saveload.Uint8, saveload.NoCurrent()).
		Build()

	s.platformTable = saveload.NewTable[Platform]().
		Var("Tile", saveload.FileU16|saveload.MemU32, saveload.NoCurrent(), saveload.Legacy(0, 5)).
		Var("Tile", saveload.Uint32, saveload.LegacyFrom(6)).
		Var("Status", saveload.Uint8).
		Null(3, saveload.NoCurrent(), saveload.Legacy(0, 24)).
		Ref("Site", RefSite).
		Ref("Next", RefPlatform).
		Build()

	s.berthTable = saveload.NewTable[Berth]().
		Var("Tile", saveload.FileU16|saveload.MemU32, saveload.NoCurrent(), saveload.Legacy(0, 5)).
		Var("Tile", saveload.Uint32, saveload.LegacyFrom(6)).
		Var("Capacity", saveload.Uint16).
		Ref("Site", RefSite).
		Build()

	s.vehicleTable = saveload.NewTable[Vehicle]().
		Var("Tile", saveload.FileU16|saveload.MemU32, saveload.NoCurrent(), saveload.Legacy(0, 5)).
		Var("Tile", saveload.Uint32, saveload.LegacyFrom(6)).
		Var("Cargo", saveload.Uint8).
		Var("Count", saveload.Uint16).
		Ref("Next", RefVehicle).
		Ref("Site", RefSite).
		GlobalList("vehicle.packets", &s.stagedVehiclePackets, RefPacket,
			saveload.NoCurrent(), saveload.LegacyFrom(68)).
		List("Packets", RefPacket, saveload.NoLegacy()).
		Build()

	// Packets only exist from legacy 68 on, so their chunk is simply
	// absent in older saves; no width conversions ever applied.
	s.packetTable = saveload.NewTable[CargoPacket]().
		Var("Count", saveload.Uint16).
		Var("Days", saveload.Uint8).
		Ref("Origin", RefSettlement).
		Var("Value", saveload.Int64).
		Build()

	s.settlementTable = saveload.NewTable[Settlement]().
		Var("Tile", saveload.FileU16|saveload.MemU32, saveload.NoCurrent(), saveload.Legacy(0, 5)).
		Var("Tile", saveload.Uint32, saveload.LegacyFrom(6)).
		Var("Name", saveload.Name, saveload.NoCurrent(), saveload.Legacy(0, 83)).
		Str("Name", 0, saveload.LegacyFrom(84)).
		Var("Population", saveload.FileU16|saveload.MemU32, saveload.NoCurrent(), saveload.Legacy(0, 2)).
		Var("Population", saveload.Uint32, saveload.LegacyFrom(3)).
		Array("Production", saveload.Uint16, 3, saveload.NoCurrent(), saveload.Legacy(0, 54)).
		Array("Production", saveload.Uint16, NumCargo, saveload.LegacyFrom(55)).
		Build()

	return s
}

// takeGoodsPackets returns the staged legacy packet list and clears
// the slot for the next entry. Nil when the current stamp never staged
// one.
func (s *session) takeGoodsPackets() []saveload.Ref {
	refs := s.stagedGoodsPackets
	s.stagedGoodsPackets = nil
	return refs
}

func (s *session) takeVehiclePackets() []saveload.Ref {
	refs := s.stagedVehiclePackets
	s.stagedVehiclePackets = nil
	return refs
}
