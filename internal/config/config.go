package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/apk-packager/internal/domain/apk"
)

// Timeouts bound each external tool invocation.
type Timeouts struct {
	// Compile covers javac and the d8/dx converters.
	Compile time.Duration `yaml:"compile"`
	// Assemble covers each smali invocation.
	Assemble time.Duration `yaml:"assemble"`
	// External covers the apktool build.
	External time.Duration `yaml:"external"`
	// Resources covers aapt.
	Resources time.Duration `yaml:"resources"`
	// Identity covers keytool.
	Identity time.Duration `yaml:"identity"`
	// Sign covers jarsigner.
	Sign time.Duration `yaml:"sign"`
	// Align covers zipalign.
	Align time.Duration `yaml:"align"`
}

// Config holds packager settings.
type Config struct {
	// MinSDK is the minimum platform version declared in the manifest.
	MinSDK int `yaml:"min_sdk"`
	// TargetSDK is the target platform version declared in the manifest.
	TargetSDK int `yaml:"target_sdk"`
	// Keystore is the signing identity location; "~" expands to the user home.
	Keystore string `yaml:"keystore"`
	// ApktoolJars are searched before the default apktool.jar locations.
	ApktoolJars []string `yaml:"apktool_jars,omitempty"`
	// Timeouts bound external tool invocations.
	Timeouts Timeouts `yaml:"timeouts"`
}

const (
	// DefaultConfigFilename is the settings file looked up when no path is given.
	DefaultConfigFilename = "apk-packager.yaml"

	// DefaultKeystore is the well-known debug signing identity location.
	DefaultKeystore = "~/.android/debug.keystore"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	defaultToolTimeout     = 60 * time.Second
	defaultExternalTimeout = 120 * time.Second
	defaultSigningTimeout  = 30 * time.Second
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errSDKRange is returned for inconsistent platform versions.
	errSDKRange = errors.New("min_sdk must be positive and not above target_sdk")
)

// Default returns the built-in settings.
func Default() *Config {
	cfg := new(Config)

	// Validate only fills defaults here and cannot fail.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from path. An empty path reads DefaultConfigFilename
// when it exists and falls back to Default otherwise.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills unset fields with defaults and checks ranges.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.MinSDK == 0 {
		settings.MinSDK = apk.DefaultMinSDK
	}

	if settings.TargetSDK == 0 {
		settings.TargetSDK = apk.DefaultTargetSDK
	}

	if settings.MinSDK < 1 || settings.MinSDK > settings.TargetSDK {
		return fmt.Errorf("%w: min_sdk=%d target_sdk=%d", errSDKRange, settings.MinSDK, settings.TargetSDK)
	}

	if settings.Keystore == "" {
		settings.Keystore = DefaultKeystore
	}

	t := &settings.Timeouts
	setDefault(&t.Compile, defaultToolTimeout)
	setDefault(&t.Assemble, defaultToolTimeout)
	setDefault(&t.External, defaultExternalTimeout)
	setDefault(&t.Resources, defaultToolTimeout)
	setDefault(&t.Identity, defaultSigningTimeout)
	setDefault(&t.Sign, defaultSigningTimeout)
	setDefault(&t.Align, defaultSigningTimeout)

	return nil
}

// KeystorePath returns the keystore location with "~" expanded.
func (c *Config) KeystorePath() (string, error) {
	path, err := homedir.Expand(c.Keystore)
	if err != nil {
		return "", fmt.Errorf("expand keystore path: %w", err)
	}

	return filepath.Clean(path), nil
}

func setDefault(d *time.Duration, value time.Duration) {
	if *d <= 0 {
		*d = value
	}
}
