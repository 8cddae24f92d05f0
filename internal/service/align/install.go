package align

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
)

const (
	artifactMode os.FileMode = 0o644
	outputMode   os.FileMode = 0o755
)

// applyFunc writes an update over Options.TargetPath.
type applyFunc func(update io.Reader, opts goupdate.Options) error

// Install atomically replaces dst with the contents of src.
func Install(src, dst string) error {
	return install(src, dst, goupdate.Apply)
}

func install(src, dst string, apply applyFunc) error {
	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}

	if err = os.MkdirAll(filepath.Dir(dst), outputMode); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// go-update moves the current target aside before renaming the new file in.
	var created bool

	if _, err = os.Stat(dst); errors.Is(err, os.ErrNotExist) {
		var placeholder *os.File

		if placeholder, err = os.Create(filepath.Clean(dst)); err != nil {
			return fmt.Errorf("create %s: %w", dst, err)
		}

		_ = placeholder.Close()
		created = true
	}

	checksum := sha256.Sum256(data)
	options := goupdate.Options{
		TargetPath: dst,
		TargetMode: artifactMode,
		Checksum:   checksum[:],
		Hash:       crypto.SHA256,
	}

	if err = apply(bytes.NewReader(data), options); err != nil {
		if created {
			_ = os.Remove(dst)
		}

		return fmt.Errorf("install %s: %w", dst, err)
	}

	dir, name := filepath.Split(dst)
	for _, leftover := range []string{dst + ".old", filepath.Join(dir, "."+name+".old")} {
		if _, err = os.Stat(leftover); err == nil {
			_ = os.Remove(leftover)
		}
	}

	return nil
}
