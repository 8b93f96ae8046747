// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies the compression algorithm used for a
// chunk record (1 byte in the record header). These values are
// protocol constants — changing them breaks save compatibility.
type CompressionTag uint8

const (
	// CompressionNone stores the payload uncompressed. Chosen when a
	// payload does not shrink meaningfully under either codec.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is LZ4 block compression: fast with a modest
	// ratio, picked for payloads that compress but not well.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd is zstd at its default level. Chunk payloads
	// are full of zero padding and repeated descriptor layouts, so
	// this is the common case.
	CompressionZstd CompressionTag = 2
)

// String returns the human-readable name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// zstdEncoder and zstdDecoder are reused across calls to avoid
// repeated initialization overhead. Both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("container: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("container: zstd decoder initialization failed: " + err.Error())
	}
}

// errIncompressible is returned when compressed output would not be
// smaller than the input; the caller falls back to CompressionNone.
var errIncompressible = fmt.Errorf("data is incompressible")

// compressPayload compresses a chunk payload with the best available
// algorithm: zstd when it gains at least a third, lz4 when zstd only
// gains a little, raw otherwise. Returns the stored bytes and the tag
// recorded in the chunk header.
func compressPayload(data []byte) ([]byte, CompressionTag) {
	if len(data) == 0 {
		return data, CompressionNone
	}
	compressed := zstdEncoder.EncodeAll(data, nil)
	ratio := float64(len(data)) / float64(len(compressed))
	switch {
	case ratio >= 1.5:
		return compressed, CompressionZstd
	case ratio >= 1.1:
		if lz4Data, err := compressLZ4(data); err == nil {
			return lz4Data, CompressionLZ4
		}
		return compressed, CompressionZstd
	default:
		return data, CompressionNone
	}
}

// decompressPayload reverses compressPayload. uncompressedSize must
// match the original length exactly; a mismatch is corruption.
func decompressPayload(stored []byte, tag CompressionTag, uncompressedSize int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(stored) != uncompressedSize {
			return nil, fmt.Errorf("uncompressed payload: size %d does not match expected %d",
				len(stored), uncompressedSize)
		}
		return stored, nil
	case CompressionLZ4:
		return decompressLZ4(stored, uncompressedSize)
	case CompressionZstd:
		return decompressZstd(stored, uncompressedSize)
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(data))
	destination := make([]byte, bound)

	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 when it determines the data is
	// incompressible.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

func decompressZstd(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, 0, uncompressedSize)
	result, err := zstdDecoder.DecodeAll(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}
