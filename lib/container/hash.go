// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest of an uncompressed chunk payload.
type Hash [32]byte

// payloadDomainKey is the 32-byte key for BLAKE3 keyed hashing of
// chunk payloads. A fixed constant — changing it invalidates every
// existing save. The byte values are the ASCII encoding of the domain
// name, zero-padded to 32 bytes, so the key is inspectable in hex
// dumps without sacrificing any cryptographic property.
var payloadDomainKey = [32]byte{
	'm', 'e', 'r', 'i', 'd', 'i', 'a', 'n', '.', 's', 'a', 'v', 'e', '.',
	'p', 'a', 'y', 'l', 'o', 'a', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// HashPayload computes the keyed BLAKE3 hash of an uncompressed chunk
// payload. Hashes are always computed on uncompressed bytes so a
// compression algorithm change never alters them.
func HashPayload(data []byte) Hash {
	hasher, err := blake3.NewKeyed(payloadDomainKey[:])
	if err != nil {
		panic("container: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}

// FormatHash returns the hex-encoded string representation of a hash,
// the canonical format for logs and CLI output.
func FormatHash(hash Hash) string {
	return hex.EncodeToString(hash[:])
}

// ParseHash parses a 64-character hex string into a Hash.
func ParseHash(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing payload hash: %w", err)
	}
	if len(decoded) != 32 {
		return hash, fmt.Errorf("payload hash is %d bytes, want 32", len(decoded))
	}
	copy(hash[:], decoded)
	return hash, nil
}
