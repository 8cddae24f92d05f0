package resources

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/toolchain"
	"github.com/oshokin/apk-packager/internal/worktree"
)

// finderFunc adapts a function to the Finder interface.
type finderFunc func() (string, error)

func (f finderFunc) Find() (string, error) {
	return f()
}

func newTree(t *testing.T) *worktree.Tree {
	t.Helper()

	tree, err := worktree.New("resources-test-")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = tree.Close()
	})

	return tree
}

func testManifest() *apk.ManifestDocument {
	spec := &apk.PackageSpec{AppName: "TestApp", PackageID: "com.test.app"}
	return apk.NewManifest(spec, apk.DefaultMinSDK, apk.DefaultTargetSDK)
}

// TestCompile_Success passes SDK flags and returns the aapt output.
func TestCompile_Success(t *testing.T) {
	t.Parallel()

	tree := newTree(t)
	runner := toolchain.NewFakeRunner().
		Handle("aapt", toolchain.WriteFile(toolchain.ArgAfter("-F"), []byte("PK")))
	compiler := &Compiler{
		Runner:   runner,
		Platform: finderFunc(func() (string, error) { return "/sdk/android.jar", nil }),
	}

	result, err := compiler.Compile(context.Background(), tree, testManifest())
	require.NoError(t, err)
	require.Equal(t, tree.Path("resources.apk"), result.Compiled)

	require.Equal(t, []string{
		"package", "-f",
		"-M", tree.Path("AndroidManifest.xml"),
		"-S", tree.Path("res"),
		"-I", "/sdk/android.jar",
		"-F", tree.Path("resources.apk"),
		"--min-sdk-version", "16",
		"--target-sdk-version", "28",
	}, runner.Calls()[0].Args)
}

// TestCompile_WritesSourcesWithoutPlatform keeps the manifest for the archive fallback.
func TestCompile_WritesSourcesWithoutPlatform(t *testing.T) {
	t.Parallel()

	tree := newTree(t)
	runner := toolchain.NewFakeRunner()
	compiler := &Compiler{
		Runner:   runner,
		Platform: finderFunc(func() (string, error) { return "", apk.ErrMissingAsset }),
	}

	result, err := compiler.Compile(context.Background(), tree, testManifest())
	require.NoError(t, err)
	require.Empty(t, result.Compiled)
	require.Empty(t, runner.Calls())

	manifest, err := os.ReadFile(result.Manifest)
	require.NoError(t, err)
	require.Equal(t, result.ManifestText, string(manifest))
	require.Contains(t, result.ManifestText, `package="com.test.app"`)
	require.FileExists(t, tree.Path("res", "values", "strings.xml"))
}

// TestCompile_ToolFailures treats exit codes and missing output alike.
func TestCompile_ToolFailures(t *testing.T) {
	t.Parallel()

	handlers := map[string]toolchain.Handler{
		"non-zero exit":  toolchain.Fail(apk.ErrToolNonZeroExit),
		"timeout":        toolchain.Fail(apk.ErrToolTimeout),
		"missing output": toolchain.Succeed(),
	}

	for name, handler := range handlers {
		handler := handler
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			compiler := &Compiler{
				Runner:   toolchain.NewFakeRunner().Handle("aapt", handler),
				Platform: finderFunc(func() (string, error) { return "/sdk/android.jar", nil }),
			}

			result, err := compiler.Compile(context.Background(), newTree(t), testManifest())
			require.NoError(t, err)
			require.Empty(t, result.Compiled)
			require.NotEmpty(t, result.ManifestText)
		})
	}
}
