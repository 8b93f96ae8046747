// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package world holds the simulation entities and their descriptor
// tables: the consumer side of the savegame engine. Every entity
// lives in a pool under a stable slot index; the chunk handlers here
// map each pool onto one savegame chunk, including the legacy layouts
// that saves from older format generations still carry.
package world
