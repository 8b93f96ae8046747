// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/meridian-sim/meridian/lib/saveload"
)

func testMetadata() Metadata {
	return Metadata{
		Name:    "Two rivers, no bridges",
		SimDate: 731155,
		Created: time.Unix(1787654321, 0).UTC(),
		Comment: "autosave",
	}
}

func writeTestContainer(t *testing.T, chunks []Chunk) []byte {
	t.Helper()
	var buffer bytes.Buffer
	w, err := NewWriter(&buffer, testMetadata())
	if err != nil {
		t.Fatal(err)
	}
	for _, chunk := range chunks {
		if err := w.WriteChunk(chunk.Tag, chunk.Payload); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buffer.Bytes()
}

func TestContainerRoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte{0, 0, 0, 7}, 4096)
	incompressible := make([]byte, 256)
	for i := range incompressible {
		incompressible[i] = byte(i*131 + 17)
	}
	chunks := []Chunk{
		{Tag: saveload.MakeTag("DPTN"), Payload: compressible},
		{Tag: saveload.MakeTag("VEHS"), Payload: incompressible},
		{Tag: saveload.MakeTag("STLM"), Payload: nil},
	}

	data := writeTestContainer(t, chunks)

	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Stamp().IsCurrent() {
		t.Errorf("Stamp() = %v, want current", r.Stamp())
	}
	meta := r.Metadata()
	want := testMetadata()
	if meta.Name != want.Name || meta.SimDate != want.SimDate || meta.Comment != want.Comment {
		t.Errorf("Metadata() = %+v, want %+v", meta, want)
	}
	if !meta.Created.Equal(want.Created) {
		t.Errorf("Created = %v, want %v", meta.Created, want.Created)
	}

	for i, wantChunk := range chunks {
		chunk, err := r.NextChunk()
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if chunk == nil {
			t.Fatalf("NextChunk returned terminator at chunk %d", i)
		}
		if chunk.Tag != wantChunk.Tag {
			t.Errorf("chunk %d tag = %s, want %s", i, chunk.Tag, wantChunk.Tag)
		}
		if !bytes.Equal(chunk.Payload, wantChunk.Payload) {
			t.Errorf("chunk %d payload mismatch (%d vs %d bytes)",
				i, len(chunk.Payload), len(wantChunk.Payload))
		}
	}
	chunk, err := r.NextChunk()
	if err != nil || chunk != nil {
		t.Fatalf("after last chunk: NextChunk() = %v, %v, want nil, nil", chunk, err)
	}
	// The terminator is sticky.
	if chunk, err := r.NextChunk(); err != nil || chunk != nil {
		t.Fatalf("repeated NextChunk() = %v, %v", chunk, err)
	}
}

func TestCompressionChoices(t *testing.T) {
	zeros := make([]byte, 8192)
	stored, tag := compressPayload(zeros)
	if tag != CompressionZstd {
		t.Errorf("zeros compressed as %v, want zstd", tag)
	}
	if len(stored) >= len(zeros) {
		t.Errorf("zeros did not shrink: %d bytes", len(stored))
	}

	random := make([]byte, 4096)
	state := uint32(0x2545F491)
	for i := range random {
		state = state*1664525 + 1013904223
		random[i] = byte(state >> 24)
	}
	stored, tag = compressPayload(random)
	if tag != CompressionNone {
		t.Errorf("noise compressed as %v, want none", tag)
	}
	if !bytes.Equal(stored, random) {
		t.Error("CompressionNone altered the payload")
	}

	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		if strings.HasPrefix(tag.String(), "unknown") {
			t.Errorf("tag %d has no name", tag)
		}
	}
}

func TestCorruptPayloadDetected(t *testing.T) {
	payload := bytes.Repeat([]byte("meridian"), 512)
	data := writeTestContainer(t, []Chunk{{Tag: saveload.MakeTag("DPTN"), Payload: payload}})

	// Flip one bit of the stored payload (the last byte before the
	// terminator).
	corrupted := append([]byte(nil), data...)
	corrupted[len(corrupted)-5] ^= 0x01

	r, err := NewReader(bytes.NewReader(corrupted))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.NextChunk(); err == nil {
		t.Fatal("corrupted payload passed verification")
	}
}

func TestTruncatedContainer(t *testing.T) {
	payload := bytes.Repeat([]byte{1, 2, 3, 4}, 64)
	data := writeTestContainer(t, []Chunk{{Tag: saveload.MakeTag("DPTN"), Payload: payload}})

	// Drop the terminator and part of the last chunk.
	r, err := NewReader(bytes.NewReader(data[:len(data)-20]))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.NextChunk(); err == nil {
		t.Fatal("truncated chunk read succeeded")
	}
}

func TestBadMagic(t *testing.T) {
	if _, err := NewReader(bytes.NewReader([]byte("GARBAGE!plus some more"))); err == nil {
		t.Fatal("bad magic accepted")
	}

	// A future container version is rejected with a version message.
	data := writeTestContainer(t, nil)
	data[6] = 99
	_, err := NewReader(bytes.NewReader(data))
	if err == nil || !strings.Contains(err.Error(), "version 99") {
		t.Fatalf("future version gave %v", err)
	}
}

func TestWriterRejectsZeroTag(t *testing.T) {
	var buffer bytes.Buffer
	w, err := NewWriter(&buffer, testMetadata())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteChunk(saveload.Tag{}, []byte{1}); err == nil {
		t.Fatal("zero tag accepted")
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteChunk(saveload.MakeTag("DPTN"), []byte{1}); err == nil {
		t.Fatal("write after Close accepted")
	}
}

func TestHashFormatParse(t *testing.T) {
	hash := HashPayload([]byte("payload"))
	formatted := FormatHash(hash)
	if len(formatted) != 64 {
		t.Fatalf("FormatHash length = %d", len(formatted))
	}
	parsed, err := ParseHash(formatted)
	if err != nil {
		t.Fatal(err)
	}
	if parsed != hash {
		t.Fatal("ParseHash(FormatHash(h)) != h")
	}
	if _, err := ParseHash("abcd"); err == nil {
		t.Fatal("short hash accepted")
	}
}
