package dex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/adler32"
	"os"
	"path/filepath"
)

const (
	// HeaderSize is the fixed length of a DEX header and of the placeholder file.
	HeaderSize = 0x70

	// EndianConstant is the value of endian_tag for little-endian files.
	EndianConstant uint32 = 0x12345678

	checksumOffset   = 8
	checksumEnd      = 12
	fileSizeOffset   = 32
	headerSizeOffset = 36
	endianTagOffset  = 40

	fileMode os.FileMode = 0o644
)

// Magic is "dex\n035\0": the file magic followed by format version 035.
//
//nolint:gochecknoglobals // Fixed format constant.
var Magic = []byte{'d', 'e', 'x', '\n', '0', '3', '5', 0}

var (
	errTooShort       = errors.New("shorter than the DEX header")
	errBadMagic       = errors.New("bad magic")
	errBadEndianTag   = errors.New("unexpected endian tag")
	errBadHeaderSize  = errors.New("unexpected header size")
	errBadFileSize    = errors.New("file size field does not match")
	errChecksumBroken = errors.New("checksum mismatch")
)

// Placeholder returns a HeaderSize-byte container with every section empty.
// The SHA-1 signature slot is left zeroed; only the Adler-32 checksum is filled.
func Placeholder() []byte {
	data := make([]byte, HeaderSize)

	copy(data, Magic)
	binary.LittleEndian.PutUint32(data[fileSizeOffset:], HeaderSize)
	binary.LittleEndian.PutUint32(data[headerSizeOffset:], HeaderSize)
	binary.LittleEndian.PutUint32(data[endianTagOffset:], EndianConstant)

	// link, map, string_ids, type_ids, proto_ids, field_ids, method_ids,
	// class_defs and data sizes/offsets stay zero.
	binary.LittleEndian.PutUint32(data[checksumOffset:], Checksum(data))

	return data
}

// Checksum computes the Adler-32 of everything after the checksum field.
func Checksum(data []byte) uint32 {
	if len(data) < checksumEnd {
		return 0
	}

	return adler32.Checksum(data[checksumEnd:])
}

// Verify checks header shape and checksum self-consistency.
func Verify(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("dex: %d bytes: %w", len(data), errTooShort)
	}

	if !bytes.Equal(data[:len(Magic)], Magic) {
		return fmt.Errorf("dex: %w", errBadMagic)
	}

	if tag := binary.LittleEndian.Uint32(data[endianTagOffset:]); tag != EndianConstant {
		return fmt.Errorf("dex: %#x: %w", tag, errBadEndianTag)
	}

	if size := binary.LittleEndian.Uint32(data[headerSizeOffset:]); size != HeaderSize {
		return fmt.Errorf("dex: %#x: %w", size, errBadHeaderSize)
	}

	if size := binary.LittleEndian.Uint32(data[fileSizeOffset:]); int(size) != len(data) {
		return fmt.Errorf("dex: declared %d, actual %d: %w", size, len(data), errBadFileSize)
	}

	stored := binary.LittleEndian.Uint32(data[checksumOffset:])
	if computed := Checksum(data); stored != computed {
		return fmt.Errorf("dex: stored %#08x, computed %#08x: %w", stored, computed, errChecksumBroken)
	}

	return nil
}

// WritePlaceholder writes the placeholder container to path.
func WritePlaceholder(path string) error {
	if err := os.WriteFile(filepath.Clean(path), Placeholder(), fileMode); err != nil {
		return fmt.Errorf("write placeholder dex: %w", err)
	}

	return nil
}
