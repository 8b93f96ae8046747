// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Meridian's standard CBOR encoding
// configuration.
//
// Meridian uses two serialization formats with a clear boundary:
//
//   - YAML for human-edited surfaces: the exported settings file.
//   - CBOR for binary surfaces: the savegame metadata block and any
//     future on-disk state records.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every Meridian package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC
// 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes, so saving an unchanged world twice yields the same file.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
package codec
