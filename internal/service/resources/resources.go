// Package resources compiles the manifest and string resources with aapt.
package resources

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/logger"
	"github.com/oshokin/apk-packager/internal/toolchain"
	"github.com/oshokin/apk-packager/internal/worktree"
)

const (
	resourceDir    = "res"
	compiledOutput = "resources.apk"
)

// Finder locates the platform archive.
type Finder interface {
	Find() (string, error)
}

// Compiler invokes aapt.
type Compiler struct {
	Runner   toolchain.Runner
	Platform Finder
	Timeout  time.Duration
}

// Sources are the documents written into the working tree.
type Sources struct {
	// Manifest is the textual AndroidManifest.xml path.
	Manifest string
	// ResourceDir is the res/ directory holding values/strings.xml.
	ResourceDir string
	// ManifestText is kept for embedding when compilation fails.
	ManifestText string
}

// Write renders the manifest and string resources into the tree.
// It runs regardless of aapt availability.
func Write(tree *worktree.Tree, manifest *apk.ManifestDocument) (*Sources, error) {
	text, err := manifest.Render()
	if err != nil {
		return nil, err
	}

	stringsXML, err := manifest.RenderStrings()
	if err != nil {
		return nil, err
	}

	if _, err = tree.WriteFile(filepath.Join(resourceDir, "values", "strings.xml"), []byte(stringsXML)); err != nil {
		return nil, err
	}

	manifestPath, err := tree.WriteFile(apk.ManifestMember, []byte(text))
	if err != nil {
		return nil, err
	}

	return &Sources{
		Manifest:     manifestPath,
		ResourceDir:  tree.Path(resourceDir),
		ManifestText: text,
	}, nil
}

// Result is the outcome of resource compilation.
type Result struct {
	*Sources

	// Compiled is the aapt output archive; empty when compilation failed.
	Compiled string
}

// Compile writes the sources and runs aapt. Tool failures leave Compiled empty;
// only failures to write the sources are returned as errors.
func (c *Compiler) Compile(ctx context.Context, tree *worktree.Tree, manifest *apk.ManifestDocument) (*Result, error) {
	ctx = logger.WithName(ctx, "resources")

	sources, err := Write(tree, manifest)
	if err != nil {
		return nil, err
	}

	path, err := c.compile(ctx, tree, manifest, sources)
	if err != nil {
		logger.WarnKV(ctx, "Resource compilation failed, the package may not install on devices", "error", err)
		return &Result{Sources: sources}, nil
	}

	logger.InfoKV(ctx, "Resources compiled", "path", path)

	return &Result{Sources: sources, Compiled: path}, nil
}

func (c *Compiler) compile(
	ctx context.Context,
	tree *worktree.Tree,
	manifest *apk.ManifestDocument,
	sources *Sources,
) (string, error) {
	platformJar, err := c.Platform.Find()
	if err != nil {
		return "", fmt.Errorf("locate android.jar: %w", err)
	}

	output := tree.Path(compiledOutput)

	_, err = c.Runner.Run(ctx, &toolchain.Invocation{
		Tool: "aapt",
		Args: []string{
			"package",
			"-f",
			"-M", sources.Manifest,
			"-S", sources.ResourceDir,
			"-I", platformJar,
			"-F", output,
			"--min-sdk-version", strconv.Itoa(manifest.MinSDK),
			"--target-sdk-version", strconv.Itoa(manifest.TargetSDK),
		},
		Timeout: c.Timeout,
	})
	if err != nil {
		return "", fmt.Errorf("aapt: %w", err)
	}

	if !worktree.Exists(output) {
		return "", fmt.Errorf("aapt: %s: %w", output, apk.ErrStructuralFailure)
	}

	return output, nil
}
