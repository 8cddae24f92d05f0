package sdk

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/oshokin/apk-packager/internal/domain/apk"
)

const (
	// PlatformJar is the file name of the platform API archive.
	PlatformJar = "android.jar"

	// SystemSDKRoot is where distribution packages install the SDK.
	SystemSDKRoot = "/usr/lib/android-sdk"

	// Preferred API levels are known to work with the generated sources.
	preferredMinAPI = 23
	preferredMaxAPI = 30

	platformPrefix = "android-"
)

// Provider yields candidate paths in priority order.
type Provider func(fs afero.Fs) []string

// Locator searches candidate providers in order.
type Locator struct {
	fs        afero.Fs
	providers []Provider
}

// NewLocator returns a locator over fs using providers in the given order.
func NewLocator(fs afero.Fs, providers ...Provider) *Locator {
	return &Locator{
		fs:        fs,
		providers: providers,
	}
}

// Candidates returns every candidate in search order, existing or not.
func (l *Locator) Candidates() []string {
	var all []string
	for _, provide := range l.providers {
		all = append(all, provide(l.fs)...)
	}

	return all
}

// Find returns the first candidate that exists as a regular file.
func (l *Locator) Find() (string, error) {
	for _, provide := range l.providers {
		for _, candidate := range provide(l.fs) {
			info, err := l.fs.Stat(candidate)
			if err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("no candidate found: %w", apk.ErrMissingAsset)
}

// Static yields the given paths as-is.
func Static(paths ...string) Provider {
	return func(afero.Fs) []string {
		return append([]string(nil), paths...)
	}
}

// PlatformScan lists <dir>/android-N/android.jar ordered by preference:
// API levels 23..30 first, then the rest, ascending within each group.
// Directories whose name carries no API level are ignored.
func PlatformScan(dir string) Provider {
	return func(fs afero.Fs) []string {
		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			return nil
		}

		type platform struct {
			api  int
			path string
		}

		platforms := make([]platform, 0, len(entries))

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			api, ok := ParseAPILevel(entry.Name())
			if !ok {
				continue
			}

			jar := filepath.Join(dir, entry.Name(), PlatformJar)
			if exists, _ := afero.Exists(fs, jar); !exists {
				continue
			}

			platforms = append(platforms, platform{api: api, path: jar})
		}

		sort.SliceStable(platforms, func(i, j int) bool {
			pi, pj := isPreferred(platforms[i].api), isPreferred(platforms[j].api)
			if pi != pj {
				return pi
			}

			return platforms[i].api < platforms[j].api
		})

		paths := make([]string, 0, len(platforms))
		for _, p := range platforms {
			paths = append(paths, p.path)
		}

		return paths
	}
}

// EnvSDKRoot scans <root>/platforms for the first SDK root variable that is set.
func EnvSDKRoot(lookupEnv func(string) (string, bool), names ...string) Provider {
	return func(fs afero.Fs) []string {
		for _, name := range names {
			root, ok := lookupEnv(name)
			if !ok || strings.TrimSpace(root) == "" {
				continue
			}

			return PlatformScan(filepath.Join(root, "platforms"))(fs)
		}

		return nil
	}
}

// ParseAPILevel extracts N from "android-N" or "android-N.x".
func ParseAPILevel(name string) (int, bool) {
	level := strings.TrimPrefix(name, platformPrefix)
	level, _, _ = strings.Cut(level, ".")

	api, err := strconv.Atoi(level)
	if err != nil {
		return 0, false
	}

	return api, true
}

func isPreferred(api int) bool {
	return api >= preferredMinAPI && api <= preferredMaxAPI
}
