// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/meridian-sim/meridian/lib/saveload"
)

// Container format constants.
const (
	// containerVersion is the physical format version, independent of
	// the logical savegame version carried in the stamp.
	containerVersion = 1

	// stampHeaderSize is the fixed stamp block after the magic:
	// 1-byte generation + 1 reserved + 2-byte version + 2-byte minor
	// + 2 reserved. Reserved bytes must be zero.
	stampHeaderSize = 8

	// chunkHeaderSize is the fixed per-chunk record header: 4-byte
	// tag + 1-byte compression tag + 3 reserved + 4-byte compressed
	// size + 4-byte uncompressed size + 32-byte payload hash.
	chunkHeaderSize = 48

	// maxChunkPayload bounds a single chunk's uncompressed payload so
	// a corrupt size field cannot drive an absurd allocation.
	maxChunkPayload = 1 << 30
)

// containerMagic is the 8-byte save file signature: the format name,
// a version byte, and a reserved byte.
var containerMagic = [8]byte{'M', 'R', 'D', 'S', 'A', 'V', containerVersion, 0}

// Writer streams a savegame to disk: stamp, metadata, then one
// compressed chunk record per WriteChunk call. Close writes the
// terminator record; a container without one is truncated.
type Writer struct {
	w      io.Writer
	closed bool
}

// NewWriter writes the container header — magic, stamp, metadata —
// and returns a writer ready for chunk records. The stamp is always
// this build's own; legacy stamps exist only on the read side.
func NewWriter(w io.Writer, meta Metadata) (*Writer, error) {
	if _, err := w.Write(containerMagic[:]); err != nil {
		return nil, fmt.Errorf("writing save magic: %w", err)
	}

	stamp := saveload.CurrentStamp()
	var header [stampHeaderSize]byte
	header[0] = byte(stamp.Generation)
	binary.LittleEndian.PutUint16(header[2:4], stamp.Version)
	binary.LittleEndian.PutUint16(header[4:6], stamp.Minor)
	if _, err := w.Write(header[:]); err != nil {
		return nil, fmt.Errorf("writing version stamp: %w", err)
	}

	metaBytes, err := encodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(metaBytes)))
	if _, err := w.Write(length[:]); err != nil {
		return nil, fmt.Errorf("writing metadata length: %w", err)
	}
	if _, err := w.Write(metaBytes); err != nil {
		return nil, fmt.Errorf("writing metadata: %w", err)
	}

	return &Writer{w: w}, nil
}

// WriteChunk appends one chunk record: the payload is hashed
// uncompressed, compressed with whichever algorithm pays off, and
// framed with its sizes.
func (cw *Writer) WriteChunk(tag saveload.Tag, payload []byte) error {
	if cw.closed {
		return fmt.Errorf("chunk %s written after Close", tag)
	}
	if tag == (saveload.Tag{}) {
		return fmt.Errorf("chunk tag must not be zero")
	}
	if len(payload) > maxChunkPayload {
		return fmt.Errorf("chunk %s payload is %d bytes (limit %d)", tag, len(payload), maxChunkPayload)
	}

	hash := HashPayload(payload)
	stored, compression := compressPayload(payload)

	var header [chunkHeaderSize]byte
	copy(header[0:4], tag[:])
	header[4] = byte(compression)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(stored)))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(payload)))
	copy(header[16:48], hash[:])

	if _, err := cw.w.Write(header[:]); err != nil {
		return fmt.Errorf("writing chunk %s header: %w", tag, err)
	}
	if _, err := cw.w.Write(stored); err != nil {
		return fmt.Errorf("writing chunk %s payload: %w", tag, err)
	}
	return nil
}

// Close writes the terminator record. The underlying io.Writer is the
// caller's to close.
func (cw *Writer) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true
	var terminator [4]byte
	if _, err := cw.w.Write(terminator[:]); err != nil {
		return fmt.Errorf("writing save terminator: %w", err)
	}
	return nil
}

// Chunk is one decoded chunk record: its tag and the uncompressed,
// hash-verified payload, plus how it was stored on disk.
type Chunk struct {
	Tag     saveload.Tag
	Payload []byte

	// Compression is the algorithm the payload was stored with.
	Compression CompressionTag

	// StoredSize is the framed byte count of the stored payload.
	StoredSize int
}

// Reader parses a savegame container sequentially. NewReader consumes
// the header; NextChunk yields each verified chunk until the
// terminator.
type Reader struct {
	r       io.Reader
	stamp   saveload.Stamp
	meta    Metadata
	rawMeta []byte
	done    bool
}

// NewReader reads and validates the container header. The stamp and
// metadata are available immediately; chunk records follow via
// NextChunk.
func NewReader(r io.Reader) (*Reader, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("reading save magic: %w", err)
	}
	if magic != containerMagic {
		if magic[0] == 'M' && magic[1] == 'R' && magic[2] == 'D' &&
			magic[3] == 'S' && magic[4] == 'A' && magic[5] == 'V' {
			return nil, fmt.Errorf("save container version %d is not supported (this build supports version %d)",
				magic[6], containerVersion)
		}
		return nil, fmt.Errorf("not a Meridian save (invalid magic bytes)")
	}

	var header [stampHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading version stamp: %w", err)
	}
	stamp := saveload.Stamp{
		Generation: saveload.Generation(header[0]),
		Version:    binary.LittleEndian.Uint16(header[2:4]),
		Minor:      binary.LittleEndian.Uint16(header[4:6]),
	}
	if stamp.Generation == saveload.GenInvalid {
		return nil, fmt.Errorf("save carries an invalid generation stamp")
	}

	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, fmt.Errorf("reading metadata length: %w", err)
	}
	metaLength := binary.LittleEndian.Uint32(length[:])
	if metaLength > maxMetadataSize {
		return nil, fmt.Errorf("metadata block is %d bytes (limit %d)", metaLength, maxMetadataSize)
	}
	metaBytes := make([]byte, metaLength)
	if _, err := io.ReadFull(r, metaBytes); err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	meta, err := decodeMetadata(metaBytes)
	if err != nil {
		return nil, err
	}

	return &Reader{r: r, stamp: stamp, meta: meta, rawMeta: metaBytes}, nil
}

// Stamp returns the save's version stamp.
func (cr *Reader) Stamp() saveload.Stamp { return cr.stamp }

// Metadata returns the save's metadata block.
func (cr *Reader) Metadata() Metadata { return cr.meta }

// MetadataBytes returns the metadata block's raw encoded bytes, for
// tools that inspect the encoding itself.
func (cr *Reader) MetadataBytes() []byte { return cr.rawMeta }

// NextChunk returns the next chunk record with its payload
// decompressed and verified against the stored hash, or (nil, nil)
// after the terminator.
func (cr *Reader) NextChunk() (*Chunk, error) {
	if cr.done {
		return nil, nil
	}

	var tag saveload.Tag
	if _, err := io.ReadFull(cr.r, tag[:]); err != nil {
		return nil, fmt.Errorf("reading chunk tag: %w", err)
	}
	if tag == (saveload.Tag{}) {
		cr.done = true
		return nil, nil
	}

	var header [chunkHeaderSize - 4]byte
	if _, err := io.ReadFull(cr.r, header[:]); err != nil {
		return nil, fmt.Errorf("reading chunk %s header: %w", tag, err)
	}
	compression := CompressionTag(header[0])
	compressedSize := binary.LittleEndian.Uint32(header[4:8])
	uncompressedSize := binary.LittleEndian.Uint32(header[8:12])
	var wantHash Hash
	copy(wantHash[:], header[12:44])

	if uncompressedSize > maxChunkPayload || compressedSize > maxChunkPayload {
		return nil, fmt.Errorf("chunk %s declares an oversized payload (%d/%d bytes)",
			tag, compressedSize, uncompressedSize)
	}

	stored := make([]byte, compressedSize)
	if _, err := io.ReadFull(cr.r, stored); err != nil {
		return nil, fmt.Errorf("reading chunk %s payload: %w", tag, err)
	}

	payload, err := decompressPayload(stored, compression, int(uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("decompressing chunk %s: %w", tag, err)
	}
	if gotHash := HashPayload(payload); gotHash != wantHash {
		return nil, fmt.Errorf("chunk %s hash mismatch: stored %s, computed %s",
			tag, FormatHash(wantHash), FormatHash(gotHash))
	}

	return &Chunk{
		Tag:         tag,
		Payload:     payload,
		Compression: compression,
		StoredSize:  int(compressedSize),
	}, nil
}
