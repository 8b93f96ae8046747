// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"fmt"
	"time"

	"github.com/meridian-sim/meridian/lib/codec"
)

// Metadata is the descriptive block stored after the version stamp:
// everything a save browser needs without touching chunk data. It is
// encoded as deterministic CBOR; unknown fields from newer builds are
// ignored on read.
type Metadata struct {
	// Name is the player-visible title of the save.
	Name string `cbor:"name"`

	// SimDate is the simulation date the world was saved at, in days
	// since the epoch.
	SimDate uint32 `cbor:"simDate"`

	// Created is the wall-clock time the save was written.
	Created time.Time `cbor:"created"`

	// Comment is an optional free-form note.
	Comment string `cbor:"comment,omitempty"`
}

// maxMetadataSize bounds the metadata block so a corrupt length field
// cannot drive an allocation of gigabytes.
const maxMetadataSize = 1 << 20

func encodeMetadata(meta Metadata) ([]byte, error) {
	data, err := codec.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding save metadata: %w", err)
	}
	if len(data) > maxMetadataSize {
		return nil, fmt.Errorf("save metadata is %d bytes (limit %d)", len(data), maxMetadataSize)
	}
	return data, nil
}

func decodeMetadata(data []byte) (Metadata, error) {
	var meta Metadata
	if err := codec.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("decoding save metadata: %w", err)
	}
	return meta, nil
}
