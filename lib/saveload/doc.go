// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package saveload is the descriptor-driven savegame engine.
//
// The full mutable state of a running simulation is persisted through
// declarative descriptor tables: one [Field] per persisted value, each
// carrying its on-disk and in-memory primitive widths, two independent
// savegame version ranges (one for the current format generation, one
// for the legacy generations), and either a struct offset or the
// address of a global. A single generic walker applies a [Table] to an
// object in one of three modes — size, write, read — so the table is
// the file format: the accumulated version ranges across the engine's
// history are the whole backward-compatibility contract.
//
// Tables are built with the reflect-checked [NewTable] builder and
// validated at construction. A descriptor whose declared memory width
// does not match the real field, or whose array overruns its storage,
// is a defect in the table itself, not a data error, and panics
// immediately.
//
// Loading is two-phase. Phase 1 reads every chunk of the save and
// materializes raw fields; object-to-object links are stored as plain
// slot ids ([Ref]) because the target object's chunk may not have been
// read yet. Phase 2, after all chunks are in, walks every object again
// through [Resolver.ResolveObject], which validates each id against
// the pool named by the descriptor's reference kind and normalizes
// legacy sentinels. Because links stay slot ids in memory, phase 2 is
// idempotent and side-effect-free on success.
//
// The physical container (framing, compression, integrity hashes)
// lives in lib/container; orchestration of a whole save or load is in
// lib/savefile. This package never performs I/O of its own: readers
// operate on a fully materialized chunk payload, writers accumulate
// into memory.
package saveload
