package apk

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// ArchiveExtension is appended to the application name to form the artifact name.
	ArchiveExtension = ".apk"

	// BytecodeMember is the archive member holding the bytecode container.
	BytecodeMember = "classes.dex"

	// ManifestMember is the archive member holding the application manifest.
	ManifestMember = "AndroidManifest.xml"
)

// PackageSpec describes one generation run. It is not modified after validation.
type PackageSpec struct {
	// AppName is the display name and the base name of the produced archive.
	AppName string
	// PackageID is the dot-separated application identifier, e.g. com.example.app.
	PackageID string
	// OutputDir is the directory receiving the final archive.
	OutputDir string
}

// Validate checks the specification before any stage runs.
func (s *PackageSpec) Validate() error {
	if err := ValidatePackageID(s.PackageID); err != nil {
		return err
	}

	if strings.TrimSpace(s.AppName) == "" {
		return fmt.Errorf("%w: application name is empty", ErrInvalidInput)
	}

	if strings.ContainsAny(s.AppName, `/\`) || s.AppName == "." || s.AppName == ".." {
		return fmt.Errorf("%w: application name %q cannot be used as a file name", ErrInvalidInput, s.AppName)
	}

	return nil
}

// ArtifactPath returns <OutputDir>/<AppName>.apk.
func (s *PackageSpec) ArtifactPath() string {
	return filepath.Join(s.OutputDir, s.AppName+ArchiveExtension)
}

// ClassPath returns the package identifier in slash form, e.g. com/example/app.
func (s *PackageSpec) ClassPath() string {
	return strings.ReplaceAll(s.PackageID, ".", "/")
}

// ValidatePackageID accepts non-empty dot-separated segments of ASCII letters and digits.
func ValidatePackageID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: package name is empty", ErrInvalidInput)
	}

	for _, r := range id {
		if r != '.' && !isASCIIAlnum(r) {
			return fmt.Errorf("%w: package name %q must contain only alphanumeric characters and dots",
				ErrInvalidInput, id)
		}
	}

	if strings.HasPrefix(id, ".") || strings.HasSuffix(id, ".") {
		return fmt.Errorf("%w: package name %q cannot start or end with a dot", ErrInvalidInput, id)
	}

	if strings.Contains(id, "..") {
		return fmt.Errorf("%w: package name %q contains an empty segment", ErrInvalidInput, id)
	}

	return nil
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
