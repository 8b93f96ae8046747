// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package saveload

import "fmt"

// CurrentVersion is the savegame version this build writes. Every
// save produced by the engine is stamped GenCurrent at this version;
// descriptor version ranges are checked against it on the write path.
const CurrentVersion uint16 = 20

// MaxVersion is the highest possible savegame version, used as the
// open upper bound of a version range.
const MaxVersion uint16 = 0xFFFF

// Generation identifies a historical family of on-disk format. The
// legacy generations were produced by earlier tools with their own
// version numbering; GenCurrent is the only generation this engine
// writes.
type Generation uint8

const (
	// LegacyTTO and LegacyTTD are the original game's formats.
	LegacyTTO Generation = iota
	LegacyTTD
	// LegacyPatch1 and LegacyPatch2 are the patch project's formats
	// (the second moved its extra data block to the other map border).
	LegacyPatch1
	LegacyPatch2
	// LegacyOTTD is the long-running open rewrite's format, the only
	// legacy generation with a major/minor version pair.
	LegacyOTTD
	// GenCurrent is this engine's own format.
	GenCurrent

	// GenInvalid marks a broken save, used internally by detection.
	GenInvalid Generation = 0xFF
)

// String returns the short format name used in diagnostics.
func (g Generation) String() string {
	switch g {
	case LegacyTTO:
		return "tto"
	case LegacyTTD:
		return "ttd"
	case LegacyPatch1:
		return "ttdp1"
	case LegacyPatch2:
		return "ttdp2"
	case LegacyOTTD:
		return "ottd"
	case GenCurrent:
		return "meridian"
	case GenInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(g))
	}
}

// Stamp names a save's format generation and version. Minor is only
// meaningful for LegacyOTTD stamps, whose history used a major/minor
// pair; other generations leave it zero.
type Stamp struct {
	Generation Generation
	Version    uint16
	Minor      uint16
}

// CurrentStamp returns the stamp this build writes.
func CurrentStamp() Stamp {
	return Stamp{Generation: GenCurrent, Version: CurrentVersion}
}

// Before reports whether the stamped save predates the given
// versions: a current-generation stamp is compared against version, a
// LegacyOTTD stamp against legacyMajor/legacyMinor (minor ignored when
// zero). Any other generation — the remaining legacy families and
// broken stamps — is assumed ancient and reports true whenever a
// legacy lower bound is in play (legacyMajor > 0). That conservative
// default is deliberate: a field gated on "legacy saves since major N"
// must be treated as absent in formats that have no comparable version
// number at all.
func (s Stamp) Before(version, legacyMajor, legacyMinor uint16) bool {
	switch s.Generation {
	case GenCurrent:
		return s.Version < version
	case LegacyOTTD:
		return s.Version < legacyMajor ||
			(legacyMinor > 0 && s.Version == legacyMajor && s.Minor < legacyMinor)
	default:
		return legacyMajor > 0
	}
}

// BeforeCurrent reports whether the save predates the given
// current-generation version. Legacy saves never do.
func (s Stamp) BeforeCurrent(version uint16) bool {
	return s.Before(version, 0, 0)
}

// BeforeLegacy reports whether the save is a legacy save older than
// the given LegacyOTTD major version. Current-generation saves never
// are; the other legacy generations always are.
func (s Stamp) BeforeLegacy(major uint16) bool {
	return s.Before(0, major, 0)
}

// IsCurrent reports whether the stamp is exactly this build's own
// format version.
func (s Stamp) IsCurrent() bool {
	return s.Generation == GenCurrent && s.Version == CurrentVersion
}

// IsLegacy reports whether the stamp belongs to any legacy generation.
func (s Stamp) IsLegacy() bool {
	return s.Generation != GenCurrent
}

// String formats the stamp for diagnostics, e.g. "meridian v20" or
// "ottd v122.1".
func (s Stamp) String() string {
	if s.Generation == LegacyOTTD && s.Minor != 0 {
		return fmt.Sprintf("%s v%d.%d", s.Generation, s.Version, s.Minor)
	}
	return fmt.Sprintf("%s v%d", s.Generation, s.Version)
}
