// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package container implements the physical savegame file: the layer
// between chunk payload bytes and disk. It frames a version stamp, a
// CBOR metadata block, and a sequence of tagged chunk records, each
// independently compressed and integrity-hashed.
//
// The logical layer (lib/saveload) defines what the payload bytes
// mean; this package only moves them. Container framing integers are
// little-endian; the chunk payloads inside are the logical layer's
// business and use their own byte order.
package container
