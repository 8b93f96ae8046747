// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package world

import (
	"fmt"

	"github.com/meridian-sim/meridian/lib/pool"
	"github.com/meridian-sim/meridian/lib/saveload"
)

// Chunk tags. DEPT is the retired site chunk legacy saves before 88
// carry; DPTN replaced it and is the only one ever written.
var (
	tagOldSites    = saveload.MakeTag("DEPT")
	tagSites       = saveload.MakeTag("DPTN")
	tagPlatforms   = saveload.MakeTag("PLTF")
	tagBerths      = saveload.MakeTag("BRTH")
	tagVehicles    = saveload.MakeTag("VEHS")
	tagPackets     = saveload.MakeTag("CPKT")
	tagSettlements = saveload.MakeTag("STLM")
)

// registry assembles the chunk handlers for one cycle. Registration
// order is fixup order.
func (s *session) registry() *saveload.Registry {
	return saveload.NewRegistry(
		saveload.Handler{Tag: tagOldSites, Array: true, Load: s.loadOldSites, Fixup: s.fixupSites},
		saveload.Handler{Tag: tagSites, Array: true, Save: s.saveSites, Load: s.loadSites, Fixup: s.fixupSites},
		saveload.Handler{
			Tag: tagPlatforms, Array: true,
			Save:  func(d *saveload.Dumper) error { return savePool(d, s.u.Platforms, s.platformTable) },
			Load:  func(r *saveload.Reader) error { return loadPool(r, s.u.Platforms, s.platformTable) },
			Fixup: func(rv *saveload.Resolver, stamp saveload.Stamp) error { return fixupPool(rv, s.u.Platforms, s.platformTable, stamp) },
		},
		saveload.Handler{
			Tag: tagBerths, Array: true,
			Save:  func(d *saveload.Dumper) error { return savePool(d, s.u.Berths, s.berthTable) },
			Load:  func(r *saveload.Reader) error { return loadPool(r, s.u.Berths, s.berthTable) },
			Fixup: func(rv *saveload.Resolver, stamp saveload.Stamp) error { return fixupPool(rv, s.u.Berths, s.berthTable, stamp) },
		},
		saveload.Handler{Tag: tagVehicles, Array: true, Save: s.saveVehicles, Load: s.loadVehicles, Fixup: s.fixupVehicles},
		saveload.Handler{
			Tag: tagPackets, Array: true,
			Save:  func(d *saveload.Dumper) error { return savePool(d, s.u.Packets, s.packetTable) },
			Load:  func(r *saveload.Reader) error { return loadPool(r, s.u.Packets, s.packetTable) },
			Fixup: func(rv *saveload.Resolver, stamp saveload.Stamp) error { return fixupPool(rv, s.u.Packets, s.packetTable, stamp) },
		},
		saveload.Handler{
			Tag: tagSettlements, Array: true,
			Save:  func(d *saveload.Dumper) error { return savePool(d, s.u.Settlements, s.settlementTable) },
			Load:  func(r *saveload.Reader) error { return loadPool(r, s.u.Settlements, s.settlementTable) },
			Fixup: func(rv *saveload.Resolver, stamp saveload.Stamp) error { return fixupPool(rv, s.u.Settlements, s.settlementTable, stamp) },
		},
	)
}

// savePool writes every occupied slot of a pool as one element.
func savePool[T any](d *saveload.Dumper, p *pool.Pool[T], table *saveload.Table) error {
	for index, obj := range p.All() {
		if err := d.WriteElement(int(index), obj, table); err != nil {
			return err
		}
	}
	return nil
}

// loadPool recreates each stored element at its saved slot.
func loadPool[T any](r *saveload.Reader, p *pool.Pool[T], table *saveload.Table) error {
	for {
		index, err := r.IterateChunk()
		if err != nil {
			return err
		}
		if index < 0 {
			return nil
		}
		obj, err := p.Create(uint32(index))
		if err != nil {
			return err
		}
		if err := r.ReadObject(obj, table); err != nil {
			return err
		}
	}
}

func fixupPool[T any](rv *saveload.Resolver, p *pool.Pool[T], table *saveload.Table, stamp saveload.Stamp) error {
	for _, obj := range p.All() {
		if err := rv.ResolveObject(obj, table, stamp); err != nil {
			return err
		}
	}
	return nil
}

// resolveRefs validates a packet list in place. List fields loaded
// from legacy saves arrive via the staging globals, which the stamp
// gating hides from ResolveObject, so the lists are always resolved
// here explicitly.
func resolveRefs(rv *saveload.Resolver, kind saveload.RefKind, refs []saveload.Ref, stamp saveload.Stamp, what string) error {
	for i, raw := range refs {
		resolved, err := rv.Resolve(kind, raw, stamp)
		if err != nil {
			return &saveload.CorruptError{Field: what, Err: fmt.Errorf("entry %d: %w", i, err)}
		}
		refs[i] = resolved
	}
	return nil
}

// readGoods reads the per-cargo entries that follow a depot record.
// Saves from before legacy 55 tracked only three cargo classes.
func (s *session) readGoods(r *saveload.Reader, depot *Depot) error {
	count := NumCargo
	if r.BeforeLegacy(55) {
		count = 3
	}
	for c := 0; c < count; c++ {
		entry := &depot.Goods[c]
		if err := r.ReadObject(entry, s.goodsTable); err != nil {
			return err
		}
		if staged := s.takeGoodsPackets(); staged != nil {
			entry.Packets = staged
		}
	}
	return nil
}

// loadOldSites reads the retired DEPT chunk. Every record is a depot;
// the thin variant did not exist yet.
func (s *session) loadOldSites(r *saveload.Reader) error {
	for {
		index, err := r.IterateChunk()
		if err != nil {
			return err
		}
		if index < 0 {
			return nil
		}
		site, err := s.u.Sites.Create(uint32(index))
		if err != nil {
			return err
		}
		site.Depot = new(Depot)
		if err := r.ReadObject(site.Depot, s.oldDepotTable); err != nil {
			return err
		}
		if err := s.readGoods(r, site.Depot); err != nil {
			return err
		}
	}
}

// loadSites reads the DPTN chunk: each element leads with a facility
// tag byte selecting the variant table.
func (s *session) loadSites(r *saveload.Reader) error {
	for {
		index, err := r.IterateChunk()
		if err != nil {
			return err
		}
		if index < 0 {
			return nil
		}
		site, err := s.u.Sites.Create(uint32(index))
		if err != nil {
			return err
		}
		switch facilities := r.ReadUint8(); facilities {
		case FacilityDepot:
			site.Depot = new(Depot)
			if err := r.ReadObject(site.Depot, s.depotTable); err != nil {
				return err
			}
			if err := s.readGoods(r, site.Depot); err != nil {
				return err
			}
		case FacilityHalt:
			site.Halt = new(Halt)
			if err := r.ReadObject(site.Halt, s.haltTable); err != nil {
				return err
			}
		default:
			if err := r.Err(); err != nil {
				return err
			}
			return &saveload.CorruptError{
				Chunk: tagSites,
				Err:   fmt.Errorf("element %d: unknown facility tag %#02x", index, facilities),
			}
		}
	}
}

func (s *session) saveSites(d *saveload.Dumper) error {
	for index, site := range s.u.Sites.All() {
		if site.Depot == nil {
			if err := d.WriteElement(int(index), site.Halt, s.haltTable); err != nil {
				return err
			}
			continue
		}
		// A depot element is the tagged record followed by its goods
		// entries, framed together.
		depot := site.Depot
		size := saveload.ObjSize(depot, s.depotTable)
		for c := range depot.Goods {
			size += saveload.ObjSize(&depot.Goods[c], s.goodsTable)
		}
		d.WriteElementHeader(int(index), size)
		if err := d.WriteObject(depot, s.depotTable); err != nil {
			return err
		}
		for c := range depot.Goods {
			if err := d.WriteObject(&depot.Goods[c], s.goodsTable); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *session) fixupSites(rv *saveload.Resolver, stamp saveload.Stamp) error {
	for _, site := range s.u.Sites.All() {
		if site.Depot != nil {
			depot := site.Depot
			if err := rv.ResolveObject(depot, s.depotTable, stamp); err != nil {
				return err
			}
			for c := range depot.Goods {
				entry := &depot.Goods[c]
				if err := rv.ResolveObject(entry, s.goodsTable, stamp); err != nil {
					return err
				}
				if err := resolveRefs(rv, RefPacket, entry.Packets, stamp, "Packets"); err != nil {
					return err
				}
			}
		} else if site.Halt != nil {
			if err := rv.ResolveObject(site.Halt, s.haltTable, stamp); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *session) loadVehicles(r *saveload.Reader) error {
	for {
		index, err := r.IterateChunk()
		if err != nil {
			return err
		}
		if index < 0 {
			return nil
		}
		vehicle, err := s.u.Vehicles.Create(uint32(index))
		if err != nil {
			return err
		}
		if err := r.ReadObject(vehicle, s.vehicleTable); err != nil {
			return err
		}
		if staged := s.takeVehiclePackets(); staged != nil {
			vehicle.Packets = staged
		}
	}
}

func (s *session) saveVehicles(d *saveload.Dumper) error {
	return savePool(d, s.u.Vehicles, s.vehicleTable)
}

func (s *session) fixupVehicles(rv *saveload.Resolver, stamp saveload.Stamp) error {
	for _, vehicle := range s.u.Vehicles.All() {
		if err := rv.ResolveObject(vehicle, s.vehicleTable, stamp); err != nil {
			return err
		}
		if err := resolveRefs(rv, RefPacket, vehicle.Packets, stamp, "Packets"); err != nil {
			return err
		}
	}
	return nil
}
