package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/apk-packager/internal/config"
	"github.com/oshokin/apk-packager/internal/domain/apk"
)

// Extension is appended to the application name to form the report file name.
const Extension = ".build.yaml"

// Report describes one finished packaging run.
type Report struct {
	// Generator is the packager version that produced the archive.
	Generator string `yaml:"generator"`
	// GeneratedAt is the UTC completion time.
	GeneratedAt time.Time `yaml:"generated_at"`
	// AppName is the application label.
	AppName string `yaml:"app_name"`
	// PackageID is the application identifier.
	PackageID string `yaml:"package"`
	// BuiltBy is omitted when the host or user cannot be determined.
	BuiltBy *Actor `yaml:"built_by,omitempty"`
	// Result holds the stage outcomes.
	Result apk.Result `yaml:"result"`
}

// FileRepository persists a report to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the report.
	path string
	// mu protects concurrent access to the report file.
	mu sync.Mutex
}

// ErrNotFound is returned when the report file does not exist.
var ErrNotFound = errors.New("report not found")

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// PathFor returns <OutputDir>/<AppName>.build.yaml.
func PathFor(spec *apk.PackageSpec) string {
	return filepath.Join(spec.OutputDir, spec.AppName+Extension)
}

// Path returns the report location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the report from disk.
func (r *FileRepository) Load(_ context.Context) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read report file: %w", err)
	}

	var report Report
	if err = yaml.Unmarshal(contents, &report); err != nil {
		return nil, fmt.Errorf("decode report file: %w", err)
	}

	return &report, nil
}

// Save writes the report to disk.
func (r *FileRepository) Save(_ context.Context, report *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}

	return nil
}
