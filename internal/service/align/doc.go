// Package align produces the final artifact: the archive rewritten by zipalign,
// or a byte-for-byte copy of its input when alignment is unavailable.
//
// The artifact is installed into the output directory with go-update, which
// writes a sibling file, verifies its SHA-256 and renames it into place.
package align
