package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate fills defaults and rejects inconsistent SDK levels.
func TestValidate(t *testing.T) {
	t.Parallel()

	settings := new(Config)
	require.NoError(t, Validate(settings))
	require.Equal(t, 16, settings.MinSDK)
	require.Equal(t, 28, settings.TargetSDK)
	require.Equal(t, DefaultKeystore, settings.Keystore)
	require.Equal(t, 60*time.Second, settings.Timeouts.Compile)
	require.Equal(t, 120*time.Second, settings.Timeouts.External)
	require.Equal(t, 30*time.Second, settings.Timeouts.Sign)

	settings = &Config{MinSDK: 30, TargetSDK: 21}
	require.Error(t, Validate(settings))

	settings = &Config{MinSDK: -1}
	require.Error(t, Validate(settings))

	require.Error(t, Validate(nil))
}

// TestLoad_DefaultFileMissing falls back to defaults only for the implicit path.
func TestLoad_DefaultFileMissing(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = Load("missing.yaml")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestLoad_ParsesDurations reads YAML durations and keeps unset defaults.
func TestLoad_ParsesDurations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := []byte("target_sdk: 30\nkeystore: /tmp/ks\napktool_jars: [/opt/apktool.jar]\ntimeouts:\n  align: 5s\n")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 30, cfg.TargetSDK)
	require.Equal(t, 16, cfg.MinSDK)
	require.Equal(t, "/tmp/ks", cfg.Keystore)
	require.Equal(t, []string{"/opt/apktool.jar"}, cfg.ApktoolJars)
	require.Equal(t, 5*time.Second, cfg.Timeouts.Align)
	require.Equal(t, 60*time.Second, cfg.Timeouts.Resources)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings := &Config{
		MinSDK:    21,
		TargetSDK: 29,
		Keystore:  "/var/lib/keys/debug.keystore",
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)
}

// TestKeystorePath expands the home directory shorthand.
func TestKeystorePath(t *testing.T) {
	t.Parallel()

	cfg := &Config{Keystore: "/abs/debug.keystore"}
	path, err := cfg.KeystorePath()
	require.NoError(t, err)
	require.Equal(t, "/abs/debug.keystore", path)

	cfg = &Config{Keystore: DefaultKeystore}
	path, err = cfg.KeystorePath()
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(path))
	require.Equal(t, "debug.keystore", filepath.Base(path))
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory and restores it when the test finishes.
func chdir(t *testing.T, dir string) {
	t.Helper()

	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}
