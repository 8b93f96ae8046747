// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package world

import (
	"github.com/meridian-sim/meridian/lib/pool"
	"github.com/meridian-sim/meridian/lib/saveload"
)

// Reference kinds, one per pool. Protocol constants: they appear in
// descriptor tables, not on disk, but reordering them would silently
// cross-wire every Ref descriptor.
const (
	RefSite saveload.RefKind = iota + 1
	RefPlatform
	RefVehicle
	RefPacket
	RefSettlement
)

// NumCargo is the number of cargo classes a depot tracks. Saves from
// legacy versions before 55 carried only the first three.
const NumCargo = 4

// Facility tags discriminate the two site variants within the shared
// site chunk. Written as the leading byte of each element.
const (
	FacilityDepot uint8 = 1
	FacilityHalt  uint8 = 2
)

// SiteBase is the prefix shared by both site variants. It is embedded
// at offset zero of Depot and Halt so one descriptor table covers it
// via Include.
type SiteBase struct {
	Tile       uint32
	Name       string
	Owner      uint8
	BuildDate  uint32
	Settlement saveload.Ref
}

// GoodsEntry tracks one cargo class at a depot: its state and the
// packets currently waiting there.
type GoodsEntry struct {
	Status  uint8
	Rating  uint8
	Days    uint8
	Source  saveload.Ref // settlement the last delivery originated from
	Packets []saveload.Ref
}

// Depot is the full-service site variant: it accepts and stores
// cargo.
type Depot struct {
	Base      SiteBase
	TruckBays uint8
	Goods     [NumCargo]GoodsEntry

	// Platforms counts the platforms linked to this depot. Derived
	// after load, never saved.
	Platforms uint16
}

// Halt is the thin site variant: a routing waypoint with no cargo
// handling.
type Halt struct {
	Base SiteBase
	Kind uint8
}

// Site is the sum of the two variants sharing the site pool; exactly
// one of the pointers is set.
type Site struct {
	Depot *Depot
	Halt  *Halt
}

// Base returns the shared prefix of whichever variant is present.
func (s *Site) Base() *SiteBase {
	if s.Depot != nil {
		return &s.Depot.Base
	}
	return &s.Halt.Base
}

// Platform is one loading platform, linked to its site and chained to
// the next platform of the same site.
type Platform struct {
	Tile   uint32
	Status uint8
	Site   saveload.Ref
	Next   saveload.Ref // next platform in the same site's chain
}

// Berth is a water loading slot attached to a site.
type Berth struct {
	Tile     uint32
	Capacity uint16
	Site     saveload.Ref
}

// Vehicle carries cargo between sites. Next chains articulated
// vehicles.
type Vehicle struct {
	Tile    uint32
	Cargo   uint8
	Count   uint16
	Next    saveload.Ref
	Site    saveload.Ref // site currently being serviced, if any
	Packets []saveload.Ref
}

// CargoPacket is one batch of cargo with a common origin and age.
type CargoPacket struct {
	Count  uint16
	Days   uint8
	Origin saveload.Ref // settlement the cargo was produced in
	Value  int64
}

// Settlement is a population center: the origin of cargo and the
// owner of names on the map.
type Settlement struct {
	Tile       uint32
	Name       string
	Population uint32
	Production [NumCargo]uint16
}

// Pool capacities. Slot indices are persisted, so shrinking a
// capacity invalidates saves that use the upper slots.
const (
	maxSites       = 64 << 10
	maxPlatforms   = 128 << 10
	maxBerths      = 64 << 10
	maxVehicles    = 256 << 10
	maxPackets     = 1 << 20
	maxSettlements = 64 << 10
)

// Universe owns every entity pool. A load builds a fresh universe and
// hands it over only on success, so a failed load never leaves a
// half-populated world observable.
type Universe struct {
	Sites       *pool.Pool[Site]
	Platforms   *pool.Pool[Platform]
	Berths      *pool.Pool[Berth]
	Vehicles    *pool.Pool[Vehicle]
	Packets     *pool.Pool[CargoPacket]
	Settlements *pool.Pool[Settlement]
}

// NewUniverse returns an empty universe.
func NewUniverse() *Universe {
	return &Universe{
		Sites:       pool.New[Site]("site", maxSites),
		Platforms:   pool.New[Platform]("platform", maxPlatforms),
		Berths:      pool.New[Berth]("berth", maxBerths),
		Vehicles:    pool.New[Vehicle]("vehicle", maxVehicles),
		Packets:     pool.New[CargoPacket]("packet", maxPackets),
		Settlements: pool.New[Settlement]("settlement", maxSettlements),
	}
}

// resolver builds the reference resolver over this universe's pools.
func (u *Universe) resolver() *saveload.Resolver {
	rv := saveload.NewResolver()
	rv.Register(RefSite, "site", u.Sites)
	rv.Register(RefPlatform, "platform", u.Platforms)
	rv.Register(RefVehicle, "vehicle", u.Vehicles)
	rv.Register(RefPacket, "packet", u.Packets)
	rv.Register(RefSettlement, "settlement", u.Settlements)
	return rv
}

// afterLoad recomputes state derived from the resolved references:
// per-depot platform counts. Runs after every fixup has validated the
// ids, so lookups cannot dangle.
func (u *Universe) afterLoad() {
	for _, site := range u.Sites.All() {
		if site.Depot != nil {
			site.Depot.Platforms = 0
		}
	}
	for _, platform := range u.Platforms.All() {
		index, ok := platform.Site.Index()
		if !ok {
			continue
		}
		site, ok := u.Sites.Get(index)
		if !ok || site.Depot == nil {
			continue
		}
		site.Depot.Platforms++
	}
}
