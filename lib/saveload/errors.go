// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package saveload

import "fmt"

// CorruptError reports inconsistent savegame data: truncated chunk
// payloads, dangling reference ids, strings violating their encoding
// policy. It identifies the offending chunk and, where known, the
// field. Corruption aborts the whole load; the engine never attempts
// partial recovery.
type CorruptError struct {
	// Chunk is the tag of the chunk being processed, zero if the
	// error is outside any chunk.
	Chunk Tag

	// Field is the diagnostic name of the descriptor being walked,
	// empty if not field-specific.
	Field string

	// Err is the underlying cause.
	Err error
}

func (e *CorruptError) Error() string {
	switch {
	case e.Chunk != (Tag{}) && e.Field != "":
		return fmt.Sprintf("corrupt savegame: chunk %s, field %s: %v", e.Chunk, e.Field, e.Err)
	case e.Chunk != (Tag{}):
		return fmt.Sprintf("corrupt savegame: chunk %s: %v", e.Chunk, e.Err)
	default:
		return fmt.Sprintf("corrupt savegame: %v", e.Err)
	}
}

func (e *CorruptError) Unwrap() error { return e.Err }

// corruptf builds a CorruptError with a formatted cause.
func corruptf(chunk Tag, field, format string, args ...any) *CorruptError {
	return &CorruptError{Chunk: chunk, Field: field, Err: fmt.Errorf(format, args...)}
}
