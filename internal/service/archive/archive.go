// Package archive assembles the unsigned package from bytecode, resources and manifest.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/logger"
)

const archiveMode = 0o644

// Inputs are the files merged into the archive.
type Inputs struct {
	// Bytecode is the classes.dex file; always required.
	Bytecode string
	// Resources is the aapt output; empty when compilation failed.
	Resources string
	// ManifestText is embedded raw when Resources is empty.
	ManifestText string
}

// writer adds members and drops any name it has already written.
type writer struct {
	zw    *zip.Writer
	names map[string]struct{}
}

func newWriter(w io.Writer) *writer {
	return &writer{
		zw:    zip.NewWriter(w),
		names: make(map[string]struct{}),
	}
}

// add writes one member unless the name is taken; it reports whether it wrote.
func (w *writer) add(header *zip.FileHeader, body io.Reader) (bool, error) {
	if _, taken := w.names[header.Name]; taken {
		return false, nil
	}

	dst, err := w.zw.CreateHeader(header)
	if err != nil {
		return false, fmt.Errorf("create member %s: %w", header.Name, err)
	}

	if _, err = io.Copy(dst, body); err != nil {
		return false, fmt.Errorf("write member %s: %w", header.Name, err)
	}

	w.names[header.Name] = struct{}{}

	return true, nil
}

// Assemble writes the archive to dst. The bytecode member is written first so
// it wins over a same-named member of the resource archive.
func Assemble(ctx context.Context, dst string, in *Inputs) error {
	ctx = logger.WithName(ctx, "archive")

	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, archiveMode)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	w := newWriter(out)

	if err = fill(ctx, w, in); err != nil {
		_ = w.zw.Close()
		_ = out.Close()

		return err
	}

	if err = w.zw.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("finish archive: %w", err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	logger.DebugKV(ctx, "Archive assembled", "path", dst, "members", len(w.names))

	return nil
}

func fill(ctx context.Context, w *writer, in *Inputs) error {
	if err := addFile(w, apk.BytecodeMember, in.Bytecode); err != nil {
		return err
	}

	if in.Resources != "" {
		return mergeArchive(ctx, w, in.Resources)
	}

	logger.Warn(ctx, "Embedding the uncompiled manifest; devices require the binary encoding")

	_, err := w.add(deflated(apk.ManifestMember), strings.NewReader(in.ManifestText))

	return err
}

func addFile(w *writer, name, path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	defer func() {
		_ = f.Close()
	}()

	_, err = w.add(deflated(name), f)

	return err
}

// mergeArchive copies every member of src, keeping its compression method.
func mergeArchive(ctx context.Context, w *writer, src string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open resources: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		if err = copyMember(ctx, w, file); err != nil {
			return err
		}
	}

	return nil
}

func copyMember(ctx context.Context, w *writer, file *zip.File) error {
	body, err := file.Open()
	if err != nil {
		return fmt.Errorf("open member %s: %w", file.Name, err)
	}

	defer func() {
		_ = body.Close()
	}()

	header := &zip.FileHeader{
		Name:     file.Name,
		Method:   file.Method,
		Modified: file.Modified,
	}

	written, err := w.add(header, body)
	if err != nil {
		return err
	}

	if !written {
		logger.DebugKV(ctx, "Skipping duplicate member", "name", file.Name)
	}

	return nil
}

func deflated(name string) *zip.FileHeader {
	return &zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	}
}

// Members lists member names in archive order.
func Members(path string) ([]string, error) {
	reader, err := zip.OpenReader(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	names := make([]string, 0, len(reader.File))
	for _, file := range reader.File {
		names = append(names, file.Name)
	}

	return names, nil
}

// ReadMember returns the contents of one member.
func ReadMember(path, name string) ([]byte, error) {
	reader, err := zip.OpenReader(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		body, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open member %s: %w", name, err)
		}

		data, err := io.ReadAll(body)
		_ = body.Close()

		return data, err
	}

	return nil, fmt.Errorf("member %s: %w", name, os.ErrNotExist)
}
